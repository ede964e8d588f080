// Package image wraps batched scalar or multi-channel data tensors with
// the sampling grid that defines their world geometry.
package image

import (
	"fmt"

	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// Image is a batch of channel-first data tensors (N, C, ..., X) on a grid.
type Image struct {
	data *tensor.Tensor
	grid grid.Grid
}

// New wraps a tensor as an image on the given grid. The spatial shape must
// match the grid shape.
func New(data *tensor.Tensor, g grid.Grid) (Image, error) {
	shape := data.Shape()
	if len(shape) != g.Dim()+2 {
		return Image{}, fmt.Errorf("image: expected rank %d tensor (N, C, ...X), got shape %v", g.Dim()+2, shape)
	}
	gs := g.Shape()
	for i, s := range gs {
		if shape[2+i] != s {
			return Image{}, fmt.Errorf("image: spatial shape %v does not match grid shape %v", shape[2:], gs)
		}
	}
	return Image{data: data, grid: g}, nil
}

// Tensor returns the underlying data tensor.
func (im Image) Tensor() *tensor.Tensor {
	return im.data
}

// Grid returns the sampling grid.
func (im Image) Grid() grid.Grid {
	return im.grid
}

// Dim returns the number of spatial dimensions.
func (im Image) Dim() int {
	return im.grid.Dim()
}

// Batch returns the batch size.
func (im Image) Batch() int {
	return im.data.Shape()[0]
}

// Channels returns the number of channels.
func (im Image) Channels() int {
	return im.data.Shape()[1]
}

// Resize resamples the image to a grid of the given size covering the same
// extent.
func (im Image) Resize(size []int) (Image, error) {
	g, err := im.grid.Resize(size)
	if err != nil {
		return Image{}, err
	}
	shape := make([]int, g.Dim())
	copy(shape, g.Shape())
	data := im.data.GridResize(shape, im.grid.AlignCorners())
	return New(data, g)
}

// SampleAt evaluates the image at normalized coordinates (N, ..., D) with
// zero padding outside the domain.
func (im Image) SampleAt(coords *tensor.Tensor) *tensor.Tensor {
	return im.data.GridSample(coords, tensor.PadZeros, im.grid.AlignCorners())
}
