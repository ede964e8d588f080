// Package grid defines sampling grids with oriented world geometry and the
// coordinate domain conversions between normalized, voxel and world space.
//
// Grid sizes are given in spatial order (X, Y, Z), while the data tensors
// defined on a grid store their spatial dimensions reversed (..., Z, Y, X).
// Coordinate tensors order their components (x, y, ...) to match the layout
// expected by grid sampling.
package grid

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/warp-ml/warp/internal/tensor"
)

// Grid describes a regular sampling grid embedded in world space. The zero
// value is not usable; construct grids with New.
type Grid struct {
	size         []int
	spacing      []float64
	origin       []float64
	direction    []float64 // row-major D×D, columns are axis directions
	alignCorners bool
}

// Option configures a Grid during construction.
type Option func(*Grid)

// WithSpacing sets the world spacing between grid points per axis.
func WithSpacing(spacing ...float64) Option {
	return func(g *Grid) {
		g.spacing = append([]float64(nil), spacing...)
	}
}

// WithOrigin sets the world position of the first grid point.
func WithOrigin(origin ...float64) Option {
	return func(g *Grid) {
		g.origin = append([]float64(nil), origin...)
	}
}

// WithCenter positions the grid so its center lies at the given world
// point. Applied after spacing and direction.
func WithCenter(center ...float64) Option {
	return func(g *Grid) {
		d := len(g.size)
		offset := make([]float64, d)
		for i := 0; i < d; i++ {
			offset[i] = float64(g.size[i]-1) / 2 * g.spacing[i]
		}
		g.origin = make([]float64, d)
		for r := 0; r < d; r++ {
			g.origin[r] = center[r]
			for c := 0; c < d; c++ {
				g.origin[r] -= g.direction[r*d+c] * offset[c]
			}
		}
	}
}

// WithDirection sets the row-major D×D direction cosine matrix.
func WithDirection(direction []float64) Option {
	return func(g *Grid) {
		g.direction = append([]float64(nil), direction...)
	}
}

// WithAlignCorners selects the normalized coordinate convention used when
// sampling data defined on this grid.
func WithAlignCorners(align bool) Option {
	return func(g *Grid) {
		g.alignCorners = align
	}
}

// New creates a grid with the given size in spatial order (X, Y, Z).
// Spacing defaults to 1, origin to 0 and direction to the identity.
func New(size []int, opts ...Option) (Grid, error) {
	d := len(size)
	if d == 0 {
		return Grid{}, fmt.Errorf("grid: empty size")
	}
	for _, s := range size {
		if s < 1 {
			return Grid{}, fmt.Errorf("grid: invalid size %v", size)
		}
	}
	g := Grid{
		size:      append([]int(nil), size...),
		spacing:   make([]float64, d),
		origin:    make([]float64, d),
		direction: make([]float64, d*d),
	}
	for i := 0; i < d; i++ {
		g.spacing[i] = 1
		g.direction[i*d+i] = 1
	}
	for _, opt := range opts {
		opt(&g)
	}
	if len(g.spacing) != d || len(g.origin) != d || len(g.direction) != d*d {
		return Grid{}, fmt.Errorf("grid: inconsistent dimensions for size %v", size)
	}
	for _, s := range g.spacing {
		if s <= 0 {
			return Grid{}, fmt.Errorf("grid: spacing must be positive, got %v", g.spacing)
		}
	}
	return g, nil
}

// MustNew is like New but panics on error. Intended for fixed literals.
func MustNew(size []int, opts ...Option) Grid {
	g, err := New(size, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Dim returns the number of spatial dimensions.
func (g Grid) Dim() int {
	return len(g.size)
}

// Size returns the grid size in spatial order (X, Y, Z).
func (g Grid) Size() []int {
	return append([]int(nil), g.size...)
}

// Shape returns the grid size in tensor order (Z, Y, X), the spatial shape
// of data tensors defined on this grid.
func (g Grid) Shape() []int {
	d := len(g.size)
	shape := make([]int, d)
	for i := 0; i < d; i++ {
		shape[i] = g.size[d-1-i]
	}
	return shape
}

// Spacing returns the world spacing per axis.
func (g Grid) Spacing() []float64 {
	return append([]float64(nil), g.spacing...)
}

// Origin returns the world position of the first grid point.
func (g Grid) Origin() []float64 {
	return append([]float64(nil), g.origin...)
}

// Direction returns the row-major direction cosine matrix.
func (g Grid) Direction() []float64 {
	return append([]float64(nil), g.direction...)
}

// AlignCorners reports the normalized coordinate convention of this grid.
func (g Grid) AlignCorners() bool {
	return g.alignCorners
}

// NumPoints returns the total number of grid points.
func (g Grid) NumPoints() int {
	n := 1
	for _, s := range g.size {
		n *= s
	}
	return n
}

// Center returns the world coordinates of the grid center.
func (g Grid) Center() []float64 {
	d := g.Dim()
	center := make([]float64, d)
	for r := 0; r < d; r++ {
		center[r] = g.origin[r]
		for c := 0; c < d; c++ {
			center[r] += g.direction[r*d+c] * g.spacing[c] * float64(g.size[c]-1) / 2
		}
	}
	return center
}

// Extent returns the full physical extent per axis, including the
// half-point margin on each side.
func (g Grid) Extent() []float64 {
	d := g.Dim()
	extent := make([]float64, d)
	for i := 0; i < d; i++ {
		extent[i] = float64(g.size[i]) * g.spacing[i]
	}
	return extent
}

// CubeExtent returns the physical extent between corner point centers.
func (g Grid) CubeExtent() []float64 {
	d := g.Dim()
	extent := make([]float64, d)
	for i := 0; i < d; i++ {
		extent[i] = float64(g.size[i]-1) * g.spacing[i]
	}
	return extent
}

// Resize returns a grid with the given size covering the same physical
// extent. Spacing is rescaled and the center is preserved.
func (g Grid) Resize(size []int) (Grid, error) {
	if len(size) != g.Dim() {
		return Grid{}, fmt.Errorf("grid resize: expected %d dims, got %d", g.Dim(), len(size))
	}
	center := g.Center()
	spacing := make([]float64, g.Dim())
	for i := range spacing {
		spacing[i] = g.spacing[i] * float64(g.size[i]) / float64(size[i])
	}
	return New(size,
		WithSpacing(spacing...),
		WithDirection(g.direction),
		WithAlignCorners(g.alignCorners),
		WithCenter(center...),
	)
}

// Equal reports whether two grids describe the same sampling geometry.
func (g Grid) Equal(other Grid) bool {
	if g.Dim() != other.Dim() || g.alignCorners != other.alignCorners {
		return false
	}
	for i := range g.size {
		if g.size[i] != other.size[i] || g.spacing[i] != other.spacing[i] || g.origin[i] != other.origin[i] {
			return false
		}
	}
	for i := range g.direction {
		if g.direction[i] != other.direction[i] {
			return false
		}
	}
	return true
}

// String returns a short description of the grid.
func (g Grid) String() string {
	return fmt.Sprintf("Grid(size=%v, spacing=%v, origin=%v)", g.size, g.spacing, g.origin)
}

// affine is a D-dimensional affine map y = A·x + b over coordinate
// components in axis order (x, y, z).
type affine struct {
	a []float64 // row-major D×D
	b []float64
}

func identityAffine(d int) affine {
	t := affine{a: make([]float64, d*d), b: make([]float64, d)}
	for i := 0; i < d; i++ {
		t.a[i*d+i] = 1
	}
	return t
}

// compose returns the map applying first, then second.
func compose(second, first affine) affine {
	d := len(first.b)
	out := affine{a: make([]float64, d*d), b: make([]float64, d)}
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			sum := 0.0
			for k := 0; k < d; k++ {
				sum += second.a[r*d+k] * first.a[k*d+c]
			}
			out.a[r*d+c] = sum
		}
		sum := second.b[r]
		for k := 0; k < d; k++ {
			sum += second.a[r*d+k] * first.b[k]
		}
		out.b[r] = sum
	}
	return out
}

// invert returns the inverse affine map using a dense matrix inverse.
func invert(t affine) (affine, error) {
	d := len(t.b)
	m := mat.NewDense(d, d, append([]float64(nil), t.a...))
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return affine{}, fmt.Errorf("grid: singular transform: %w", err)
	}
	out := affine{a: make([]float64, d*d), b: make([]float64, d)}
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			out.a[r*d+c] = inv.At(r, c)
		}
		sum := 0.0
		for k := 0; k < d; k++ {
			sum -= inv.At(r, k) * t.b[k]
		}
		out.b[r] = sum
	}
	return out, nil
}

// toVoxel returns the affine map from the given domain to grid indices.
func (g Grid) toVoxel(from Domain) (affine, error) {
	d := g.Dim()
	t := identityAffine(d)
	switch from {
	case Voxel:
		return t, nil
	case Cube:
		for i := 0; i < d; i++ {
			t.a[i*d+i] = float64(g.size[i]) / 2
			t.b[i] = float64(g.size[i]-1) / 2
		}
		return t, nil
	case CubeCorners:
		for i := 0; i < d; i++ {
			t.a[i*d+i] = float64(g.size[i]-1) / 2
			t.b[i] = float64(g.size[i]-1) / 2
		}
		return t, nil
	case World:
		fwd, err := g.fromVoxel(World)
		if err != nil {
			return affine{}, err
		}
		return invert(fwd)
	default:
		return affine{}, fmt.Errorf("grid: unknown domain %v", from)
	}
}

// fromVoxel returns the affine map from grid indices to the given domain.
func (g Grid) fromVoxel(to Domain) (affine, error) {
	d := g.Dim()
	switch to {
	case Voxel:
		return identityAffine(d), nil
	case World:
		t := affine{a: make([]float64, d*d), b: append([]float64(nil), g.origin...)}
		for r := 0; r < d; r++ {
			for c := 0; c < d; c++ {
				t.a[r*d+c] = g.direction[r*d+c] * g.spacing[c]
			}
		}
		return t, nil
	case Cube, CubeCorners:
		fwd, err := g.toVoxel(to)
		if err != nil {
			return affine{}, err
		}
		return invert(fwd)
	default:
		return affine{}, fmt.Errorf("grid: unknown domain %v", to)
	}
}

// Transform returns the affine map between two coordinate domains of this
// grid as a homogeneous (D, D+1) tensor, rows ordered by axis (x, y, z).
func (g Grid) Transform(from, to Domain, b tensor.Backend) (*tensor.Tensor, error) {
	t, err := g.transformAffine(from, to)
	if err != nil {
		return nil, err
	}
	d := g.Dim()
	out := tensor.Zeros(tensor.Shape{d, d + 1}, b)
	data := out.Data()
	for r := 0; r < d; r++ {
		copy(data[r*(d+1):r*(d+1)+d], t.a[r*d:(r+1)*d])
		data[r*(d+1)+d] = t.b[r]
	}
	return out, nil
}

func (g Grid) transformAffine(from, to Domain) (affine, error) {
	if from == to {
		return identityAffine(g.Dim()), nil
	}
	first, err := g.toVoxel(from)
	if err != nil {
		return affine{}, err
	}
	second, err := g.fromVoxel(to)
	if err != nil {
		return affine{}, err
	}
	return compose(second, first), nil
}

// TransformPoints maps point coordinates (..., D) between domains of this
// grid. The operation is differentiable with respect to the points.
func (g Grid) TransformPoints(points *tensor.Tensor, from, to Domain) (*tensor.Tensor, error) {
	if from == to {
		return points, nil
	}
	t, err := g.transformAffine(from, to)
	if err != nil {
		return nil, err
	}
	return applyAffine(points, t, true)
}

// TransformVectors maps displacement vectors (..., D) between domains.
// Translation does not apply to vectors.
func (g Grid) TransformVectors(vectors *tensor.Tensor, from, to Domain) (*tensor.Tensor, error) {
	if from == to {
		return vectors, nil
	}
	t, err := g.transformAffine(from, to)
	if err != nil {
		return nil, err
	}
	return applyAffine(vectors, t, false)
}

// applyAffine evaluates y = A·x (+ b) for a batch of coordinate rows using
// tensor operations so gradients flow through x.
func applyAffine(points *tensor.Tensor, t affine, translate bool) (*tensor.Tensor, error) {
	shape := points.Shape()
	d := len(t.b)
	if shape[len(shape)-1] != d {
		return nil, fmt.Errorf("grid: expected point dimension %d, got shape %v", d, shape)
	}
	m := points.NumElements() / d
	flat := points.Reshape(tensor.Shape{1, m, d})

	// Row vectors multiply Aᵀ from the right.
	at := tensor.Zeros(tensor.Shape{1, d, d}, points.Backend())
	data := at.Data()
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			data[r*d+c] = t.a[c*d+r]
		}
	}
	out := flat.BatchMatMul(at)
	if translate {
		offset := tensor.Zeros(tensor.Shape{1, 1, d}, points.Backend())
		copy(offset.Data(), t.b)
		out = out.Add(offset)
	}
	return out.Reshape(shape), nil
}
