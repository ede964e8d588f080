// Package spatial implements differentiable spatial coordinate
// transformations for image and point set registration.
//
// Transforms map points given in the normalized domain of their sampling
// grid. Linear transforms evaluate batched homogeneous matrices, non-rigid
// transforms displace points by a dense vector field. Parameters can be
// fixed buffers, optimizable tensors, predicted by a network from a
// condition input, or linked to another transform.
//
// Transforms cache evaluation state derived from their parameters. After
// parameters change, Update recomputes the cache; optimizers mark
// transforms dirty after each step.
package spatial

import (
	"fmt"

	"github.com/warp-ml/warp/internal/flow"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// Transform is a differentiable spatial coordinate mapping. Points are
// given in the normalized domain of the transform's grid with components
// ordered (x, y, z) and the coordinate dimension last.
type Transform interface {
	// Dim returns the number of spatial dimensions.
	Dim() int

	// Grid returns the sampling grid defining the transform's domain.
	Grid() grid.Grid

	// SetGrid rebinds the transform to a new sampling grid.
	SetGrid(g grid.Grid) error

	// Backend returns the compute backend of the transform's tensors.
	Backend() tensor.Backend

	// Update recomputes cached evaluation state from the current
	// parameters. It must be called after parameters change before the
	// transform is applied.
	Update() error

	// MarkDirty invalidates cached evaluation state.
	MarkDirty()

	// Dirty reports whether Update must run before the next application.
	Dirty() bool

	// Points maps point coordinates (N, ..., D) through the transform.
	Points(points *tensor.Tensor) (*tensor.Tensor, error)

	// Inverse returns the inverse transform, sharing parameters with this
	// transform where possible. Transforms without a closed-form inverse
	// return ErrUnsupportedOperation.
	Inverse() (Transform, error)

	// Parameters returns the optimizable parameter tensors.
	Parameters() []*tensor.Tensor
}

// ParametricTransform is a transform with an explicit parameterization.
type ParametricTransform interface {
	Transform

	// Kind returns the parameterization variant.
	Kind() ParamsKind

	// HasParams reports whether parameters currently resolve to a tensor.
	HasParams() bool

	// Params returns the current parameter tensor.
	Params() (*tensor.Tensor, error)

	// SetParams assigns new parameter values. Predicted and linked
	// parameters are read-only.
	SetParams(p *tensor.Tensor) error

	// ParamShape returns the required parameter shape.
	ParamShape() tensor.Shape

	// Condition returns the condition input for predicted parameters.
	Condition() *tensor.Tensor

	// SetCondition sets the condition input and marks the transform dirty.
	SetCondition(c *tensor.Tensor)

	// Link shares the parameters of another transform of the same
	// concrete type, replacing the current parameterization.
	Link(other ParametricTransform) error

	// Unlink detaches linked parameters. The transform is left without
	// parameters.
	Unlink()
}

// LinearTransform is a transform representable as a batch of homogeneous
// coordinate matrices.
type LinearTransform interface {
	Transform

	// Matrix returns the homogeneous transformation matrices (N, D, D+1).
	Matrix() (*tensor.Tensor, error)
}

// NonRigidTransform is a transform evaluating a dense displacement field.
type NonRigidTransform interface {
	Transform

	// DisplacementField returns the displacement buffer (N, D, ..., X) in
	// the normalized domain of the transform's grid.
	DisplacementField() (*tensor.Tensor, error)
}

// base carries the grid and backend shared by all transforms.
type base struct {
	grid    grid.Grid
	backend tensor.Backend
}

func (b *base) Dim() int                 { return b.grid.Dim() }
func (b *base) Grid() grid.Grid          { return b.grid }
func (b *base) Backend() tensor.Backend  { return b.backend }
func (b *base) domain() grid.Domain      { return grid.FromAlignCorners(b.grid.AlignCorners()) }
func (b *base) alignCorners() bool       { return b.grid.AlignCorners() }
func (b *base) setGrid(g grid.Grid) error {
	if g.Dim() != b.grid.Dim() {
		return fmt.Errorf("%w: cannot change dimensionality from %d to %d",
			ErrShapeMismatch, b.grid.Dim(), g.Dim())
	}
	b.grid = g
	return nil
}

// applyMatrix maps points (N, ..., D) through homogeneous matrices
// (M, D, D+1). Either batch may be 1 and broadcasts against the other.
func applyMatrix(points, matrix *tensor.Tensor) (*tensor.Tensor, error) {
	ps := points.Shape()
	ms := matrix.Shape()
	d := ms[1]
	if len(ms) != 3 || ms[2] != d+1 {
		return nil, fmt.Errorf("%w: expected homogeneous matrices (N, D, D+1), got %v", ErrShapeMismatch, ms)
	}
	if ps[len(ps)-1] != d {
		return nil, fmt.Errorf("%w: expected points with %d components, got shape %v", ErrShapeMismatch, d, ps)
	}
	n := ps[0]
	m := points.NumElements() / (n * d)
	flat := points.Reshape(tensor.Shape{n, m, d})

	// Row vectors multiply the linear part transposed from the right.
	linear := matrix.Narrow(2, 0, d)
	offset := matrix.Narrow(2, d, 1).Transpose(0, 2, 1)
	out := flat.BatchMatMul(linear.Transpose(0, 2, 1)).Add(offset)

	outShape := points.Shape().Clone()
	outShape[0] = out.Shape()[0]
	return out.Reshape(outShape), nil
}

// displacePoints adds a displacement field sampled at the points:
// y = x + u(x). The field must be in the normalized domain of the points.
func displacePoints(points, field *tensor.Tensor, alignCorners bool) (*tensor.Tensor, error) {
	ps := points.Shape()
	fs := field.Shape()
	d := len(fs) - 2
	if fs[1] != d {
		return nil, fmt.Errorf("%w: displacement field must have %d channels, got %d", ErrInvariantViolation, d, fs[1])
	}
	if ps[len(ps)-1] != d {
		return nil, fmt.Errorf("%w: expected points with %d components, got shape %v", ErrShapeMismatch, d, ps)
	}
	u := flow.Sample(field, points, alignCorners)
	// Sample returns (N, D, ...S); swap components back to the last axis.
	return points.Add(flow.FieldToPoints(u)), nil
}

// Displacement evaluates the transform at all grid points and returns the
// displacement u(x) = f(x) - x as a vector field in the grid's normalized
// domain.
func Displacement(t Transform) (flow.Field, error) {
	g := t.Grid()
	domain := grid.FromAlignCorners(g.AlignCorners())
	id, err := g.Coords(domain, t.Backend())
	if err != nil {
		return flow.Field{}, err
	}
	y, err := t.Points(id)
	if err != nil {
		return flow.Field{}, err
	}
	u := flow.PointsToField(y.Sub(id))
	return flow.NewField(u, g, domain)
}

// DisplacementOn evaluates the transform's displacement field on an
// arbitrary grid of the same dimensionality. Points of the output grid
// are mapped to the transform's domain through world coordinates, and
// the resulting vectors are returned in the output grid's normalized
// domain.
func DisplacementOn(t Transform, g grid.Grid) (flow.Field, error) {
	tg := t.Grid()
	if g.Dim() != tg.Dim() {
		return flow.Field{}, fmt.Errorf("%w: transform is %d-dimensional, output grid has %d dimensions",
			ErrShapeMismatch, tg.Dim(), g.Dim())
	}
	if g.Equal(tg) {
		return Displacement(t)
	}
	domain := grid.FromAlignCorners(g.AlignCorners())
	tdom := grid.FromAlignCorners(tg.AlignCorners())
	world, err := g.Coords(grid.World, t.Backend())
	if err != nil {
		return flow.Field{}, err
	}
	x, err := tg.TransformPoints(world, grid.World, tdom)
	if err != nil {
		return flow.Field{}, err
	}
	y, err := t.Points(x)
	if err != nil {
		return flow.Field{}, err
	}
	// Convert the displacement vectors to the output grid's units.
	uw, err := tg.TransformVectors(y.Sub(x), tdom, grid.World)
	if err != nil {
		return flow.Field{}, err
	}
	u, err := g.TransformVectors(uw, grid.World, domain)
	if err != nil {
		return flow.Field{}, err
	}
	return flow.NewField(flow.PointsToField(u), g, domain)
}

// ApplyToImage warps an image defined on the transform's grid. The
// transform maps target grid points to source sampling locations.
func ApplyToImage(t Transform, img *tensor.Tensor) (*tensor.Tensor, error) {
	g := t.Grid()
	domain := grid.FromAlignCorners(g.AlignCorners())
	id, err := g.Coords(domain, t.Backend())
	if err != nil {
		return nil, err
	}
	coords, err := t.Points(id)
	if err != nil {
		return nil, err
	}
	return img.GridSample(coords, tensor.PadZeros, g.AlignCorners()), nil
}
