// Package main provides the kernelcheck CLI, which verifies the simulated
// accelerator kernels against the reference CPU kernels.
package main

import (
	"context"
	"fmt"
	"os"
)

const version = "v0.1.0"

func main() {
	if err := NewCLI().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
