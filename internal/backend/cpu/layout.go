package cpu

import (
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// NCHWToNHWC returns the permutation from the channel-first (NCHW) layout of
// the reference kernels to the channel-last (NHWC) layout of the device.
// Each call returns a fresh slice.
func NCHWToNHWC() []int { return []int{0, 2, 3, 1} }

// NHWCToNCHW returns the inverse of NCHWToNHWC.
func NHWCToNCHW() []int { return []int{0, 3, 1, 2} }

// ToChannelLast converts an NCHW tensor to NHWC.
func (cpu *CPUBackend) ToChannelLast(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if len(x.Shape()) != 4 {
		return nil, tensor.NewKernelError("to_channel_last", tensor.ErrInvalidShape, "expected rank 4, got %v", x.Shape())
	}
	return cpu.Transpose(x, NCHWToNHWC()...)
}

// ToChannelFirst converts an NHWC tensor back to NCHW.
func (cpu *CPUBackend) ToChannelFirst(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if len(x.Shape()) != 4 {
		return nil, tensor.NewKernelError("to_channel_first", tensor.ErrInvalidShape, "expected rank 4, got %v", x.Shape())
	}
	return cpu.Transpose(x, NHWCToNCHW()...)
}
