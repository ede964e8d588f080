// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package image provides the public API for images attached to a
// sampling grid.
package image

import (
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/image"
	"github.com/warp-ml/warp/internal/tensor"
)

// Image is a batch of image channels attached to a sampling grid.
type Image = image.Image

// New wraps a (N, C, ..., X) tensor as an image on a grid.
func New(data *tensor.Tensor, g grid.Grid) (Image, error) {
	return image.New(data, g)
}
