// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The package wraps any compute backend in a recording decorator: forward
// operations are executed on the inner backend and recorded on a gradient
// tape, and Backward replays the tape in reverse to accumulate gradients.
//
// Example:
//
//	ad := autodiff.New(cpu.New())
//	x := tensor.Full(tensor.Shape{1}, 3, ad).RequireGrad()
//	y := x.Mul(x)
//	grads := ad.Backward(y.Raw())
package autodiff

import (
	"github.com/warp-ml/warp/internal/autodiff"
	"github.com/warp-ml/warp/internal/tensor"
)

// Backend decorates a compute backend with gradient recording.
type Backend = autodiff.Backend

// GradientTape records operations for reverse-mode differentiation.
type GradientTape = autodiff.GradientTape

// New wraps a backend with gradient recording.
func New(inner tensor.Backend) *Backend {
	return autodiff.New(inner)
}
