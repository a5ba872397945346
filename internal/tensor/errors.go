package tensor

import (
	"errors"
	"fmt"
)

// Error kinds returned by kernels. All of them are caller errors: kernels
// validate their arguments up front and never write a partial result.
var (
	ErrInvalidAxis        = errors.New("invalid axis")
	ErrInvalidShape       = errors.New("invalid shape")
	ErrInvalidPermutation = errors.New("invalid permutation")
	ErrInvalidDType       = errors.New("invalid dtype")
)

// KernelError describes a validation failure in a kernel.
// It unwraps to one of the Err* kinds above.
type KernelError struct {
	Op     string // Kernel or helper that rejected the input (e.g., "slice")
	Kind   error  // One of ErrInvalidAxis, ErrInvalidShape, ...
	Detail string // Human readable details
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

// Unwrap returns the error kind so errors.Is works against the sentinels.
func (e *KernelError) Unwrap() error {
	return e.Kind
}

// NewKernelError builds a *KernelError with a formatted detail message.
func NewKernelError(op string, kind error, format string, args ...any) error {
	return &KernelError{
		Op:     op,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}
}
