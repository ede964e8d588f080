// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations.
//
// The package defines the core types of the compute substrate:
//   - Tensor: multi-dimensional float64 array bound to a backend
//   - RawTensor: low-level buffer with shape and stride metadata
//   - Backend: interface for device-specific compute implementations
//   - Shape, Device: core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, backend)
//	y := tensor.Ones(tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// Device represents the compute device.
type Device = tensor.Device

// Supported compute devices.
const (
	CPU Device = tensor.CPU
)

// PaddingMode controls sampling extrapolation outside the input domain.
type PaddingMode = tensor.PaddingMode

// Supported padding modes.
const (
	PadZeros  PaddingMode = tensor.PadZeros
	PadBorder PaddingMode = tensor.PadBorder
)

// Tensor is a multi-dimensional float64 array bound to a compute backend.
type Tensor = tensor.Tensor

// RawTensor is the low-level tensor representation.
type RawTensor = tensor.RawTensor

// Backend is the interface compute backends implement.
type Backend = tensor.Backend

// New creates a Tensor from a RawTensor and backend.
func New(raw *RawTensor, b Backend) *Tensor {
	return tensor.New(raw, b)
}

// NewRaw creates a zero-initialized RawTensor with the given shape.
func NewRaw(shape Shape, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, device)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, b Backend) *Tensor {
	return tensor.Zeros(shape, b)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, b Backend) *Tensor {
	return tensor.Ones(shape, b)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64, b Backend) *Tensor {
	return tensor.Full(shape, value, b)
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice(data []float64, shape Shape, b Backend) (*Tensor, error) {
	return tensor.FromSlice(data, shape, b)
}

// Eye creates a batch of n×n identity matrices with shape (groups, n, n).
func Eye(groups, n int, b Backend) *Tensor {
	return tensor.Eye(groups, n, b)
}

// Cat concatenates tensors along a dimension.
func Cat(tensors []*Tensor, dim int) *Tensor {
	return tensor.Cat(tensors, dim)
}

// BroadcastShapes computes the broadcast result shape of two shapes.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
