// Package optim implements gradient-based optimizers for transform
// parameters.
//
// Optimizers update parameter tensors in-place from a gradient map
// produced by the autodiff tape:
//
//	grads := backend.Backward(loss.Raw())
//	optimizer.Step(grads)
package optim

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// Optimizer updates parameters from computed gradients.
type Optimizer interface {
	// Step applies one gradient update to all parameters in-place.
	// Parameters without an entry in the gradient map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LearningRate returns the current learning rate.
	LearningRate() float64

	// SetLearningRate updates the learning rate, for scheduling.
	SetLearningRate(lr float64)
}

// gradient retrieves the gradient recorded for a parameter tensor, or nil
// if the parameter did not participate in the forward pass.
func gradient(param *tensor.Tensor, grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Raw()]
}
