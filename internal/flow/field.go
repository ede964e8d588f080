// Package flow provides dense displacement and velocity fields defined on
// sampling grids, together with warping and the exponential map used for
// stationary velocity fields.
//
// Field tensors have shape (N, D, ..., X) with one channel per spatial
// dimension, channel 0 holding the x component. Point tensors swap the
// component axis to the end, (N, ..., X, D), the layout consumed by grid
// sampling.
package flow

import (
	"fmt"

	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// Field is a dense vector field on a sampling grid. Components are stored
// in the coordinate domain recorded alongside the data.
type Field struct {
	data   *tensor.Tensor
	grid   grid.Grid
	domain grid.Domain
}

// NewField wraps a tensor (N, D, ..., X) as a vector field on the given
// grid. The channel count must equal the grid dimension and the spatial
// shape must match the grid shape.
func NewField(data *tensor.Tensor, g grid.Grid, domain grid.Domain) (Field, error) {
	shape := data.Shape()
	d := g.Dim()
	if len(shape) != d+2 {
		return Field{}, fmt.Errorf("flow: expected rank %d tensor (N, D, ...X), got shape %v", d+2, shape)
	}
	if shape[1] != d {
		return Field{}, fmt.Errorf("flow: expected %d vector components, got %d", d, shape[1])
	}
	gs := g.Shape()
	for i, s := range gs {
		if shape[2+i] != s {
			return Field{}, fmt.Errorf("flow: spatial shape %v does not match grid shape %v", shape[2:], gs)
		}
	}
	return Field{data: data, grid: g, domain: domain}, nil
}

// Zero returns an all-zero field on the given grid.
func Zero(g grid.Grid, domain grid.Domain, n int, b tensor.Backend) Field {
	shape := append(tensor.Shape{n, g.Dim()}, g.Shape()...)
	f, _ := NewField(tensor.Zeros(shape, b), g, domain)
	return f
}

// Tensor returns the underlying field tensor (N, D, ..., X).
func (f Field) Tensor() *tensor.Tensor {
	return f.data
}

// Grid returns the sampling grid the field is defined on.
func (f Field) Grid() grid.Grid {
	return f.grid
}

// Domain returns the coordinate domain of the vector components.
func (f Field) Domain() grid.Domain {
	return f.domain
}

// Dim returns the number of spatial dimensions.
func (f Field) Dim() int {
	return f.grid.Dim()
}

// Batch returns the batch size.
func (f Field) Batch() int {
	return f.data.Shape()[0]
}

// ToDomain converts the vector components to another coordinate domain.
// Only the linear part of the domain transform applies to vectors.
func (f Field) ToDomain(domain grid.Domain, b tensor.Backend) (Field, error) {
	if domain == f.domain {
		return f, nil
	}
	t, err := f.grid.Transform(f.domain, domain, b)
	if err != nil {
		return Field{}, err
	}
	d := f.Dim()
	shape := f.data.Shape()
	m := f.data.NumElements() / (shape[0] * d)

	// v' = A·v applied per grid point: (1, D, D) @ (N, D, M).
	linear := tensor.Zeros(tensor.Shape{1, d, d}, b)
	ld, td := linear.Data(), t.Data()
	for r := 0; r < d; r++ {
		copy(ld[r*d:(r+1)*d], td[r*(d+1):r*(d+1)+d])
	}
	flat := f.data.Reshape(tensor.Shape{shape[0], d, m})
	out := linear.BatchMatMul(flat).Reshape(shape)
	return NewField(out, f.grid, domain)
}

// FieldToPoints moves the component axis to the end: (N, D, ..., X) to
// (N, ..., X, D).
func FieldToPoints(data *tensor.Tensor) *tensor.Tensor {
	ndim := len(data.Shape())
	axes := make([]int, ndim)
	axes[0] = 0
	for i := 1; i < ndim-1; i++ {
		axes[i] = i + 1
	}
	axes[ndim-1] = 1
	return data.Transpose(axes...)
}

// PointsToField moves the component axis to the channel position:
// (N, ..., X, D) to (N, D, ..., X).
func PointsToField(points *tensor.Tensor) *tensor.Tensor {
	ndim := len(points.Shape())
	axes := make([]int, ndim)
	axes[0] = 0
	axes[1] = ndim - 1
	for i := 2; i < ndim; i++ {
		axes[i] = i - 1
	}
	return points.Transpose(axes...)
}
