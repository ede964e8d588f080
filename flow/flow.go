// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package flow provides the public API for dense vector fields.
//
// A Field is a batch of dense displacement or velocity vectors attached
// to a sampling grid. The package exposes field warping, composition and
// the exponential map of stationary velocity fields.
//
// Example:
//
//	v := flow.Zero(g, grid.Cube, 1, backend)
//	u, err := flow.Exp(v, flow.DefaultExpSteps, backend)
package flow

import (
	"github.com/warp-ml/warp/internal/flow"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// Field is a batch of dense vectors attached to a sampling grid.
type Field = flow.Field

// DefaultExpSteps is the default number of squaring steps of Exp.
const DefaultExpSteps = flow.DefaultExpSteps

// NewField wraps a (N, D, ..., X) tensor as a vector field on a grid.
func NewField(data *tensor.Tensor, g grid.Grid, domain grid.Domain) (Field, error) {
	return flow.NewField(data, g, domain)
}

// Zero creates a zero vector field with batch size n.
func Zero(g grid.Grid, domain grid.Domain, n int, b tensor.Backend) Field {
	return flow.Zero(g, domain, n, b)
}

// Sample evaluates a vector field at normalized coordinates using linear
// interpolation with border padding.
func Sample(field, coords *tensor.Tensor, alignCorners bool) *tensor.Tensor {
	return flow.Sample(field, coords, alignCorners)
}

// Warp resamples an image tensor through a displacement field.
func Warp(image *tensor.Tensor, f Field, b tensor.Backend) (*tensor.Tensor, error) {
	return flow.Warp(image, f, b)
}

// Exp computes the group exponential of a stationary velocity field by
// scaling and squaring.
func Exp(v Field, steps int, b tensor.Backend) (Field, error) {
	return flow.Exp(v, steps, b)
}

// Compose returns the displacement field of second after first.
func Compose(second, first Field, b tensor.Backend) (Field, error) {
	return flow.Compose(second, first, b)
}

// FieldToPoints reorders field channels (N, D, ..., X) to point
// coordinates (N, ..., X, D).
func FieldToPoints(data *tensor.Tensor) *tensor.Tensor {
	return flow.FieldToPoints(data)
}

// PointsToField reorders point coordinates (N, ..., X, D) to field
// channels (N, D, ..., X).
func PointsToField(points *tensor.Tensor) *tensor.Tensor {
	return flow.PointsToField(points)
}
