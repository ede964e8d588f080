// Package ops defines the differentiable operations recorded by the
// gradient tape. Each operation stores the raw tensors of its forward pass
// and knows how to compute input gradients from the output gradient.
package ops

import (
	"fmt"

	"github.com/warp-ml/warp/internal/tensor"
)

// Operation is a single recorded forward computation. Backward applies the
// chain rule, returning one gradient per input (nil for inputs that do not
// receive gradient).
type Operation interface {
	// Backward computes input gradients from the output gradient.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the raw tensors the gradients flow to.
	Inputs() []*tensor.RawTensor

	// Output returns the raw tensor produced by the forward pass.
	Output() *tensor.RawTensor
}

// mustRaw allocates a zero tensor or panics. Allocation only fails on an
// invalid shape, which indicates a bug in the caller.
func mustRaw(shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, device)
	if err != nil {
		panic(fmt.Sprintf("ops: allocate %v: %v", shape, err))
	}
	return raw
}

// reduceBroadcast sums a gradient down to the shape of a broadcast input.
// Leading dimensions introduced by broadcasting are summed away, and
// dimensions of size 1 that were expanded are summed with keepDim.
func reduceBroadcast(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}
	result := grad
	for len(result.Shape()) > len(shape) {
		result = backend.SumDim(result, 0, false)
	}
	for d, s := range shape {
		if s == 1 && result.Shape()[d] > 1 {
			result = backend.SumDim(result, d, true)
		}
	}
	return result
}
