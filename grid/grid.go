// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package grid provides the public API for sampling grids and coordinate
// domains.
//
// A Grid describes the geometry of a regularly spaced sampling lattice:
// its size, spacing, origin and direction in world space. Domains name
// the coordinate spaces points can be expressed in.
//
// Example:
//
//	g := grid.MustNew([]int{64, 32}, grid.WithSpacing(1.5, 1.5))
//	coords, err := g.Coords(grid.Cube, backend)
package grid

import (
	"github.com/warp-ml/warp/internal/grid"
)

// Grid describes the geometry of a sampling lattice.
type Grid = grid.Grid

// Option configures a Grid at construction.
type Option = grid.Option

// Domain identifies the coordinate space points live in.
type Domain = grid.Domain

// Supported coordinate domains.
const (
	Cube        Domain = grid.Cube
	CubeCorners Domain = grid.CubeCorners
	Voxel       Domain = grid.Voxel
	World       Domain = grid.World
)

// New creates a grid with the given size in (X, Y, ...) order.
func New(size []int, opts ...Option) (Grid, error) {
	return grid.New(size, opts...)
}

// MustNew creates a grid and panics on invalid arguments.
func MustNew(size []int, opts ...Option) Grid {
	return grid.MustNew(size, opts...)
}

// WithSpacing sets the grid point spacing per dimension.
func WithSpacing(spacing ...float64) Option {
	return grid.WithSpacing(spacing...)
}

// WithOrigin sets the world coordinates of the first grid point.
func WithOrigin(origin ...float64) Option {
	return grid.WithOrigin(origin...)
}

// WithCenter sets the world coordinates of the grid center.
func WithCenter(center ...float64) Option {
	return grid.WithCenter(center...)
}

// WithDirection sets the row-major direction cosine matrix.
func WithDirection(direction []float64) Option {
	return grid.WithDirection(direction)
}

// WithAlignCorners sets the normalized coordinate convention.
func WithAlignCorners(align bool) Option {
	return grid.WithAlignCorners(align)
}

// ParseDomain converts a configuration string to a Domain.
func ParseDomain(s string) (Domain, error) {
	return grid.ParseDomain(s)
}

// FromAlignCorners returns the normalized domain matching the given
// sampling convention.
func FromAlignCorners(alignCorners bool) Domain {
	return grid.FromAlignCorners(alignCorners)
}

