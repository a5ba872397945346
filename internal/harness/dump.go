package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/born-ml/kernelcheck/internal/serialization"
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// dumpCase writes the operands and both outputs of a failing case to
// dir/<case>.safetensors and returns the file path.
func dumpCase(dir string, res Result, seed uint64, inputs map[string]*tensor.RawTensor, want, got *tensor.RawTensor) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create dump dir: %w", err)
	}

	tensors := make(map[string]*tensor.RawTensor, len(inputs)+2)
	for name, t := range inputs {
		tensors["input."+name] = t
	}
	tensors["output.reference"] = want
	tensors["output.device"] = got

	metadata := map[string]string{
		"case":         res.Case,
		"seed":         strconv.FormatUint(seed, 10),
		"tolerance":    strconv.FormatFloat(res.Tolerance, 'g', -1, 64),
		"mismatches":   strconv.Itoa(res.Mismatches),
		"max_abs_diff": strconv.FormatFloat(res.MaxAbsDiff, 'g', -1, 64),
	}

	path := filepath.Join(dir, fileName(res.Case)+".safetensors")
	if err := serialization.WriteSafeTensors(path, tensors, metadata); err != nil {
		return "", err
	}
	return path, nil
}

// fileName turns a case name into a portable file name. Runs of other
// characters collapse to a single underscore.
func fileName(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	if b.Len() == 0 {
		return "case"
	}
	return b.String()
}
