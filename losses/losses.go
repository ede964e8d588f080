// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package losses provides the public API for similarity terms and
// deformation regularizers.
package losses

import (
	"github.com/warp-ml/warp/internal/losses"
	"github.com/warp-ml/warp/internal/tensor"
)

// MSE is the mean squared error between two tensors.
func MSE(a, b *tensor.Tensor) *tensor.Tensor {
	return losses.MSE(a, b)
}

// SSD is the sum of squared differences between two tensors.
func SSD(a, b *tensor.Tensor) *tensor.Tensor {
	return losses.SSD(a, b)
}

// NCC is the negated normalized cross correlation loss.
func NCC(a, b *tensor.Tensor) *tensor.Tensor {
	return losses.NCC(a, b)
}

// Diffusion is the first-order smoothness regularizer of a vector field.
func Diffusion(u *tensor.Tensor) *tensor.Tensor {
	return losses.Diffusion(u)
}

// BendingEnergy is the second-order smoothness regularizer of a vector
// field.
func BendingEnergy(u *tensor.Tensor) *tensor.Tensor {
	return losses.BendingEnergy(u)
}
