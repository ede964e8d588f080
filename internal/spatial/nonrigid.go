package spatial

import (
	"fmt"

	"github.com/warp-ml/warp/internal/flow"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// fieldEvaluator computes the dense displacement buffer of a non-rigid
// transform from its parameters. The invert flag selects the analytic
// inverse where one exists.
type fieldEvaluator interface {
	ParamShape() tensor.Shape
	displacementFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error)
}

// nonrigidBase implements the shared machinery of non-rigid transforms.
// The cached displacement buffer u has shape (N, D, ..., X) with vector
// components in the normalized domain of the grid.
type nonrigidBase struct {
	base
	paramsState
	batch  int
	invert bool
	u      *tensor.Tensor
	ev     fieldEvaluator
}

func (nr *nonrigidBase) initNonRigid(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec, ev fieldEvaluator) error {
	if batch < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrShapeMismatch, batch)
	}
	nr.base = base{grid: g, backend: b}
	nr.batch = batch
	nr.ev = ev
	if err := nr.paramsState.init(spec, ev.ParamShape(), b); err != nil {
		return err
	}
	if spec.kind == ParamsLinked {
		return nr.linkTo(ev, ev.ParamShape(), spec.link)
	}
	return nil
}

// Link shares the parameters of another transform of the same concrete
// type, replacing the current parameterization.
func (nr *nonrigidBase) Link(other ParametricTransform) error {
	if err := nr.linkTo(nr.ev, nr.ev.ParamShape(), other); err != nil {
		return err
	}
	nr.u = nil
	return nil
}

// Unlink detaches linked parameters. The transform has no parameters
// afterwards and evaluates as the identity until new ones are set.
func (nr *nonrigidBase) Unlink() {
	nr.paramsState.unlink()
	nr.u = nil
}

// cloneInto rebinds the copy's evaluator to itself and gives it owned
// parameter storage and caches. Grid and backend stay shared.
func (nr *nonrigidBase) cloneInto(ev fieldEvaluator) {
	nr.ev = ev
	nr.u = nil
	nr.cloneParams()
}

// Batch returns the number of transforms in the batch.
func (nr *nonrigidBase) Batch() int {
	return nr.batch
}

// Invert reports whether this transform evaluates the inverse mapping.
func (nr *nonrigidBase) Invert() bool {
	return nr.invert
}

// SetGrid rebinds the transform to a grid of the same size. Changing the
// size would invalidate the parameter field.
func (nr *nonrigidBase) SetGrid(g grid.Grid) error {
	old := nr.grid.Size()
	for i, s := range g.Size() {
		if i >= len(old) || s != old[i] {
			return fmt.Errorf("%w: cannot change grid size from %v to %v with dense parameters",
				ErrShapeMismatch, old, g.Size())
		}
	}
	if err := nr.setGrid(g); err != nil {
		return err
	}
	nr.MarkDirty()
	return nil
}

// Update recomputes the cached displacement buffer from the parameters.
func (nr *nonrigidBase) Update() error {
	if nr.kind == ParamsUnset {
		shape := append(tensor.Shape{nr.batch, nr.Dim()}, nr.grid.Shape()...)
		nr.u = tensor.Zeros(shape, nr.backend)
		nr.dirty = false
		return nil
	}
	p, err := nr.resolve(nr.ev.ParamShape())
	if err != nil {
		return err
	}
	u, err := nr.ev.displacementFromParams(p, nr.invert)
	if err != nil {
		return err
	}
	if err := nr.checkDisplacement(u); err != nil {
		return err
	}
	nr.u = u
	nr.dirty = false
	return nil
}

// checkDisplacement validates the displacement buffer invariant: rank D+2
// with one channel per spatial dimension and the grid's spatial shape.
func (nr *nonrigidBase) checkDisplacement(u *tensor.Tensor) error {
	d := nr.Dim()
	shape := u.Shape()
	if len(shape) != d+2 || shape[1] != d {
		return fmt.Errorf("%w: displacement buffer must have shape (N, %d, ...), got %v",
			ErrInvariantViolation, d, shape)
	}
	gs := nr.grid.Shape()
	for i, s := range gs {
		if shape[2+i] != s {
			return fmt.Errorf("%w: displacement spatial shape %v does not match grid shape %v",
				ErrInvariantViolation, shape[2:], gs)
		}
	}
	return nil
}

// DisplacementField returns the displacement buffer, updating the cache if
// the transform is dirty.
func (nr *nonrigidBase) DisplacementField() (*tensor.Tensor, error) {
	if nr.Dirty() || nr.u == nil {
		if err := nr.Update(); err != nil {
			return nil, err
		}
	}
	return nr.u, nil
}

// Points maps point coordinates by sampling the displacement buffer:
// y = x + u(x).
func (nr *nonrigidBase) Points(points *tensor.Tensor) (*tensor.Tensor, error) {
	u, err := nr.DisplacementField()
	if err != nil {
		return nil, err
	}
	return displacePoints(points, u, nr.alignCorners())
}

// Params returns the current parameter tensor.
func (nr *nonrigidBase) Params() (*tensor.Tensor, error) {
	return nr.resolve(nr.ev.ParamShape())
}

// SetParams assigns new parameter values.
func (nr *nonrigidBase) SetParams(p *tensor.Tensor) error {
	return nr.setParams(p, nr.ev.ParamShape(), nr.backend)
}

// ParamShape returns the required parameter shape.
func (nr *nonrigidBase) ParamShape() tensor.Shape {
	return nr.ev.ParamShape()
}

// Parameters returns the optimizable parameter tensors.
func (nr *nonrigidBase) Parameters() []*tensor.Tensor {
	return nr.optimizable()
}

// DenseDisplacement is a free displacement field transform. The parameters
// are the displacement vectors themselves, (N, D, ..., X), in normalized
// coordinates.
type DenseDisplacement struct {
	nonrigidBase
}

// NewDenseDisplacement creates a dense displacement field transform.
func NewDenseDisplacement(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*DenseDisplacement, error) {
	t := &DenseDisplacement{}
	if err := t.initNonRigid(g, b, batch, spec, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ParamShape returns (N, D, ..., X).
func (t *DenseDisplacement) ParamShape() tensor.Shape {
	return append(tensor.Shape{t.batch, t.Dim()}, t.grid.Shape()...)
}

func (t *DenseDisplacement) displacementFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	if invert {
		return nil, fmt.Errorf("%w: dense displacement fields have no closed-form inverse", ErrUnsupportedOperation)
	}
	return p, nil
}

// Inverse is not available for free displacement fields.
func (t *DenseDisplacement) Inverse() (Transform, error) {
	return nil, fmt.Errorf("%w: dense displacement fields have no closed-form inverse", ErrUnsupportedOperation)
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (t *DenseDisplacement) Clone() *DenseDisplacement {
	c := *t
	c.cloneInto(&c)
	return &c
}

// DefaultSquaringSteps is the number of scaling and squaring steps used to
// integrate stationary velocity fields.
const DefaultSquaringSteps = 6

// StationaryVelocity parameterizes a diffeomorphism by a stationary
// velocity field v, (N, D, ..., X). The displacement is the group
// exponential u = exp(v) - id computed by scaling and squaring, and the
// inverse is exp(-v).
type StationaryVelocity struct {
	nonrigidBase
	steps int
}

// NewStationaryVelocity creates a velocity field transform. With steps <= 0
// DefaultSquaringSteps is used.
func NewStationaryVelocity(g grid.Grid, b tensor.Backend, batch, steps int, spec ParamsSpec) (*StationaryVelocity, error) {
	if steps <= 0 {
		steps = DefaultSquaringSteps
	}
	t := &StationaryVelocity{steps: steps}
	if err := t.initNonRigid(g, b, batch, spec, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Steps returns the number of squaring steps.
func (t *StationaryVelocity) Steps() int {
	return t.steps
}

// ParamShape returns (N, D, ..., X).
func (t *StationaryVelocity) ParamShape() tensor.Shape {
	return append(tensor.Shape{t.batch, t.Dim()}, t.grid.Shape()...)
}

func (t *StationaryVelocity) displacementFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	v := p
	if invert {
		v = p.Neg()
	}
	return expVelocity(v, t.grid, t.steps, t.backend)
}

// Inverse returns a transform sharing these parameters that integrates the
// negated velocity field.
func (t *StationaryVelocity) Inverse() (Transform, error) {
	inv, err := NewStationaryVelocity(t.grid, t.backend, t.batch, t.steps, LinkedParams(t))
	if err != nil {
		return nil, err
	}
	inv.invert = !t.invert
	return inv, nil
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (t *StationaryVelocity) Clone() *StationaryVelocity {
	c := *t
	c.cloneInto(&c)
	return &c
}

// expVelocity integrates a velocity tensor into a displacement tensor.
func expVelocity(v *tensor.Tensor, g grid.Grid, steps int, b tensor.Backend) (*tensor.Tensor, error) {
	domain := grid.FromAlignCorners(g.AlignCorners())
	vf, err := flow.NewField(v, g, domain)
	if err != nil {
		return nil, err
	}
	uf, err := flow.Exp(vf, steps, b)
	if err != nil {
		return nil, err
	}
	return uf.Tensor(), nil
}

// FreeFormDeformation is a cubic B-spline transform. Parameters are
// control point displacement coefficients (N, D, ..., Kx) on a coarser
// lattice with the given stride per axis in grid points.
type FreeFormDeformation struct {
	nonrigidBase
	stride []int // spatial order (X, Y, Z)
}

// NewFreeFormDeformation creates a B-spline transform with the given
// control point stride per axis in spatial order.
func NewFreeFormDeformation(g grid.Grid, b tensor.Backend, batch int, stride []int, spec ParamsSpec) (*FreeFormDeformation, error) {
	if len(stride) != g.Dim() {
		return nil, fmt.Errorf("%w: expected %d stride entries, got %d", ErrShapeMismatch, g.Dim(), len(stride))
	}
	for _, s := range stride {
		if s < 1 {
			return nil, fmt.Errorf("%w: control point stride must be positive, got %v", ErrShapeMismatch, stride)
		}
	}
	t := &FreeFormDeformation{stride: append([]int(nil), stride...)}
	if err := t.initNonRigid(g, b, batch, spec, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Stride returns the control point stride per axis in spatial order.
func (t *FreeFormDeformation) Stride() []int {
	return append([]int(nil), t.stride...)
}

// ControlShape returns the control lattice size per axis in spatial order.
// The lattice extends one point before and two past the grid for full
// cubic support.
func (t *FreeFormDeformation) ControlShape() []int {
	size := t.grid.Size()
	cp := make([]int, len(size))
	for i := range size {
		cp[i] = (size[i]+t.stride[i]-1)/t.stride[i] + 3
	}
	return cp
}

// ParamShape returns (N, D, ..., Kx) with the control lattice reversed to
// tensor order.
func (t *FreeFormDeformation) ParamShape() tensor.Shape {
	cp := t.ControlShape()
	d := t.Dim()
	shape := tensor.Shape{t.batch, d}
	for i := d - 1; i >= 0; i-- {
		shape = append(shape, cp[i])
	}
	return shape
}

func (t *FreeFormDeformation) displacementFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	if invert {
		return nil, fmt.Errorf("%w: free-form deformations have no closed-form inverse", ErrUnsupportedOperation)
	}
	return t.evaluateSpline(p), nil
}

// evaluateSpline computes the dense field from control coefficients.
func (t *FreeFormDeformation) evaluateSpline(p *tensor.Tensor) *tensor.Tensor {
	d := t.Dim()
	stride := make([]int, d) // tensor order (Z, Y, X)
	for i := 0; i < d; i++ {
		stride[i] = t.stride[d-1-i]
	}
	return p.CubicBSpline(stride, t.grid.Shape())
}

// Inverse is not available for free-form deformations.
func (t *FreeFormDeformation) Inverse() (Transform, error) {
	return nil, fmt.Errorf("%w: free-form deformations have no closed-form inverse", ErrUnsupportedOperation)
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (t *FreeFormDeformation) Clone() *FreeFormDeformation {
	c := *t
	c.stride = append([]int(nil), t.stride...)
	c.cloneInto(&c)
	return &c
}

// StationaryVelocityFreeFormDeformation parameterizes a diffeomorphism by
// B-spline velocity coefficients. The dense velocity field is evaluated
// from the control lattice and integrated by scaling and squaring, giving
// an invertible transform with a compact parameterization.
type StationaryVelocityFreeFormDeformation struct {
	nonrigidBase
	ffd   FreeFormDeformation // reused for lattice geometry
	steps int
}

// NewStationaryVelocityFreeFormDeformation creates a B-spline velocity
// transform with the given control point stride per axis.
func NewStationaryVelocityFreeFormDeformation(g grid.Grid, b tensor.Backend, batch int, stride []int, steps int, spec ParamsSpec) (*StationaryVelocityFreeFormDeformation, error) {
	if steps <= 0 {
		steps = DefaultSquaringSteps
	}
	helper, err := NewFreeFormDeformation(g, b, batch, stride, NoParams())
	if err != nil {
		return nil, err
	}
	t := &StationaryVelocityFreeFormDeformation{ffd: *helper, steps: steps}
	if err := t.initNonRigid(g, b, batch, spec, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Steps returns the number of squaring steps.
func (t *StationaryVelocityFreeFormDeformation) Steps() int {
	return t.steps
}

// Stride returns the control point stride per axis in spatial order.
func (t *StationaryVelocityFreeFormDeformation) Stride() []int {
	return t.ffd.Stride()
}

// ParamShape returns the control coefficient shape (N, D, ..., Kx).
func (t *StationaryVelocityFreeFormDeformation) ParamShape() tensor.Shape {
	return t.ffd.ParamShape()
}

func (t *StationaryVelocityFreeFormDeformation) displacementFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	v := t.ffd.evaluateSpline(p)
	if invert {
		v = v.Neg()
	}
	return expVelocity(v, t.grid, t.steps, t.backend)
}

// Inverse returns a transform sharing these parameters that integrates the
// negated velocity field.
func (t *StationaryVelocityFreeFormDeformation) Inverse() (Transform, error) {
	inv, err := NewStationaryVelocityFreeFormDeformation(t.grid, t.backend, t.batch, t.ffd.stride, t.steps, LinkedParams(t))
	if err != nil {
		return nil, err
	}
	inv.invert = !t.invert
	return inv, nil
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (t *StationaryVelocityFreeFormDeformation) Clone() *StationaryVelocityFreeFormDeformation {
	c := *t
	c.ffd.stride = append([]int(nil), t.ffd.stride...)
	c.ffd.ev = &c.ffd
	c.cloneInto(&c)
	return &c
}
