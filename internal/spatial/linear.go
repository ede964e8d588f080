package spatial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// matrixEvaluator computes the homogeneous matrices of a linear transform
// from its parameters. The invert flag selects the analytic inverse.
type matrixEvaluator interface {
	matrixFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error)
	ParamShape() tensor.Shape
}

// linearBase implements the shared machinery of parametric linear
// transforms: parameter resolution, matrix caching and point mapping.
type linearBase struct {
	base
	paramsState
	batch  int
	invert bool
	matrix *tensor.Tensor
	ev     matrixEvaluator
}

func (l *linearBase) initLinear(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec, ev matrixEvaluator) error {
	if batch < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrShapeMismatch, batch)
	}
	l.base = base{grid: g, backend: b}
	l.batch = batch
	l.ev = ev
	if err := l.paramsState.init(spec, ev.ParamShape(), b); err != nil {
		return err
	}
	if spec.kind == ParamsLinked {
		return l.linkTo(ev, ev.ParamShape(), spec.link)
	}
	return nil
}

// Link shares the parameters of another transform of the same concrete
// type, replacing the current parameterization.
func (l *linearBase) Link(other ParametricTransform) error {
	if err := l.linkTo(l.ev, l.ev.ParamShape(), other); err != nil {
		return err
	}
	l.matrix = nil
	return nil
}

// Unlink detaches linked parameters. The transform has no parameters
// afterwards and evaluates as the identity until new ones are set.
func (l *linearBase) Unlink() {
	l.paramsState.unlink()
	l.matrix = nil
}

// cloneInto rebinds the copy's evaluator to itself and gives it owned
// parameter storage and caches. Grid and backend stay shared.
func (l *linearBase) cloneInto(ev matrixEvaluator) {
	l.ev = ev
	l.matrix = nil
	l.cloneParams()
}

// Batch returns the number of transforms in the batch.
func (l *linearBase) Batch() int {
	return l.batch
}

// Invert reports whether this transform applies the inverse of its
// parameterized mapping.
func (l *linearBase) Invert() bool {
	return l.invert
}

// SetGrid rebinds the transform to a new sampling grid. Linear transforms
// operate in the normalized domain, so no parameter adjustment is needed.
func (l *linearBase) SetGrid(g grid.Grid) error {
	if err := l.setGrid(g); err != nil {
		return err
	}
	l.MarkDirty()
	return nil
}

// Update recomputes the cached homogeneous matrices from the parameters.
func (l *linearBase) Update() error {
	if l.kind == ParamsUnset {
		l.matrix = homIdentity(l.batch, l.Dim(), l.backend)
		l.dirty = false
		return nil
	}
	p, err := l.resolve(l.ev.ParamShape())
	if err != nil {
		return err
	}
	m, err := l.ev.matrixFromParams(p, l.invert)
	if err != nil {
		return err
	}
	l.matrix = m
	l.dirty = false
	return nil
}

// Matrix returns the homogeneous matrices (N, D, D+1), updating the cache
// if the transform is dirty.
func (l *linearBase) Matrix() (*tensor.Tensor, error) {
	if l.Dirty() || l.matrix == nil {
		if err := l.Update(); err != nil {
			return nil, err
		}
	}
	return l.matrix, nil
}

// Points maps point coordinates (N, ..., D) through the cached matrices.
func (l *linearBase) Points(points *tensor.Tensor) (*tensor.Tensor, error) {
	m, err := l.Matrix()
	if err != nil {
		return nil, err
	}
	return applyMatrix(points, m)
}

// Params returns the current parameter tensor.
func (l *linearBase) Params() (*tensor.Tensor, error) {
	return l.resolve(l.ev.ParamShape())
}

// SetParams assigns new parameter values.
func (l *linearBase) SetParams(p *tensor.Tensor) error {
	return l.setParams(p, l.ev.ParamShape(), l.backend)
}

// ParamShape returns the required parameter shape.
func (l *linearBase) ParamShape() tensor.Shape {
	return l.ev.ParamShape()
}

// Parameters returns the optimizable parameter tensors.
func (l *linearBase) Parameters() []*tensor.Tensor {
	return l.optimizable()
}

// homIdentity returns identity homogeneous matrices (n, d, d+1).
func homIdentity(n, d int, b tensor.Backend) *tensor.Tensor {
	t := tensor.Zeros(tensor.Shape{n, d, d + 1}, b)
	data := t.Data()
	for g := 0; g < n; g++ {
		for i := 0; i < d; i++ {
			data[g*d*(d+1)+i*(d+1)+i] = 1
		}
	}
	return t
}

// eyeBatch returns identity matrices (n, d, d) as a differentiation
// constant.
func eyeBatch(n, d int, b tensor.Backend) *tensor.Tensor {
	return tensor.Eye(1, d, b).Add(tensor.Zeros(tensor.Shape{n, d, d}, b))
}

// basisMatrix returns the constant (1, d, d) matrix with a single one at
// entry (i, j).
func basisMatrix(i, j, d int, b tensor.Backend) *tensor.Tensor {
	t := tensor.Zeros(tensor.Shape{1, d, d}, b)
	t.Set(1, 0, i, j)
	return t
}

// scalarEntry extracts parameter component k as a broadcastable (n, 1, 1)
// factor.
func scalarEntry(p *tensor.Tensor, k int) *tensor.Tensor {
	n := p.Shape()[0]
	return p.Narrow(1, k, 1).Reshape(tensor.Shape{n, 1, 1})
}

// withOffset appends a translation column to linear matrices (n, d, d).
func withOffset(linear, offset *tensor.Tensor) *tensor.Tensor {
	return tensor.Cat([]*tensor.Tensor{linear, offset}, 2)
}

// Translation shifts points by a batched offset vector. Parameters have
// shape (N, D) in normalized coordinates.
type Translation struct {
	linearBase
}

// NewTranslation creates a translation on the given grid.
func NewTranslation(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Translation, error) {
	t := &Translation{}
	if err := t.initLinear(g, b, batch, spec, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ParamShape returns (N, D).
func (t *Translation) ParamShape() tensor.Shape {
	return tensor.Shape{t.batch, t.Dim()}
}

func (t *Translation) matrixFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	d := t.Dim()
	offset := p
	if invert {
		offset = p.Neg()
	}
	return withOffset(eyeBatch(t.batch, d, t.backend), offset.Reshape(tensor.Shape{t.batch, d, 1})), nil
}

// Inverse returns a translation sharing these parameters with the offset
// negated on evaluation.
func (t *Translation) Inverse() (Transform, error) {
	inv, err := NewTranslation(t.grid, t.backend, t.batch, LinkedParams(t))
	if err != nil {
		return nil, err
	}
	inv.invert = !t.invert
	return inv, nil
}

// SetMatrix extracts the offset column from homogeneous matrices
// (N, D, D+1).
func (t *Translation) SetMatrix(m *tensor.Tensor) error {
	d := t.Dim()
	want := tensor.Shape{t.batch, d, d + 1}
	if !m.Shape().Equal(want) {
		return fmt.Errorf("%w: expected matrices of shape %v, got %v", ErrShapeMismatch, want, m.Shape())
	}
	return t.SetParams(m.Narrow(2, d, 1).Reshape(tensor.Shape{t.batch, d}))
}

// Clone returns a copy with its own parameter storage and caches. The
// grid, backend and any predictor, link source or condition reference
// stay shared with the original.
func (t *Translation) Clone() *Translation {
	c := *t
	c.cloneInto(&c)
	return &c
}

// Scaling applies anisotropic scaling about the grid center. Parameters
// have shape (N, D) and hold log scale factors, so zero parameters are the
// identity and negated parameters the exact inverse.
type Scaling struct {
	linearBase
}

// NewScaling creates a scaling transform on the given grid.
func NewScaling(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Scaling, error) {
	s := &Scaling{}
	if err := s.initLinear(g, b, batch, spec, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ParamShape returns (N, D).
func (s *Scaling) ParamShape() tensor.Shape {
	return tensor.Shape{s.batch, s.Dim()}
}

func (s *Scaling) matrixFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	d := s.Dim()
	logs := p
	if invert {
		logs = p.Neg()
	}
	factors := logs.Exp()
	linear := tensor.Zeros(tensor.Shape{s.batch, d, d}, s.backend)
	for k := 0; k < d; k++ {
		term := scalarEntry(factors, k).Mul(basisMatrix(k, k, d, s.backend))
		linear = linear.Add(term)
	}
	return withOffset(linear, tensor.Zeros(tensor.Shape{s.batch, d, 1}, s.backend)), nil
}

// Inverse returns a scaling sharing these parameters with the log scales
// negated on evaluation.
func (s *Scaling) Inverse() (Transform, error) {
	inv, err := NewScaling(s.grid, s.backend, s.batch, LinkedParams(s))
	if err != nil {
		return nil, err
	}
	inv.invert = !s.invert
	return inv, nil
}

// SetMatrix extracts log scale factors from the diagonal of the linear
// part. The matrices must be diagonal with positive entries.
func (s *Scaling) SetMatrix(m *tensor.Tensor) error {
	d := s.Dim()
	want := tensor.Shape{s.batch, d, d + 1}
	if !m.Shape().Equal(want) {
		return fmt.Errorf("%w: expected matrices of shape %v, got %v", ErrShapeMismatch, want, m.Shape())
	}
	p := tensor.Zeros(s.ParamShape(), s.backend)
	md, pd := m.Data(), p.Data()
	for g := 0; g < s.batch; g++ {
		for i := 0; i < d; i++ {
			v := md[g*d*(d+1)+i*(d+1)+i]
			if v <= 0 {
				return fmt.Errorf("%w: scaling requires positive diagonal entries, got %v", ErrInvariantViolation, v)
			}
			pd[g*d+i] = math.Log(v)
		}
	}
	return s.SetParams(p)
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (s *Scaling) Clone() *Scaling {
	c := *s
	c.cloneInto(&c)
	return &c
}

// Shearing applies a unit upper triangular shear. Parameters have shape
// (N, D(D-1)/2), one entry per axis pair ordered row-major.
type Shearing struct {
	linearBase
}

// NewShearing creates a shearing transform on the given grid.
func NewShearing(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Shearing, error) {
	s := &Shearing{}
	if err := s.initLinear(g, b, batch, spec, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ParamShape returns (N, D(D-1)/2).
func (s *Shearing) ParamShape() tensor.Shape {
	d := s.Dim()
	return tensor.Shape{s.batch, d * (d - 1) / 2}
}

func (s *Shearing) matrixFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	d := s.Dim()
	// Strictly upper triangular part.
	n := tensor.Zeros(tensor.Shape{s.batch, d, d}, s.backend)
	k := 0
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			n = n.Add(scalarEntry(p, k).Mul(basisMatrix(i, j, d, s.backend)))
			k++
		}
	}
	eye := eyeBatch(s.batch, d, s.backend)
	linear := eye.Add(n)
	if invert {
		// N is nilpotent, so (I + N)^-1 = I - N + N² - ... terminates.
		linear = eye
		power := eyeBatch(s.batch, d, s.backend)
		sign := -1.0
		for i := 1; i < d; i++ {
			power = power.BatchMatMul(n)
			linear = linear.Add(power.MulScalar(sign))
			sign = -sign
		}
	}
	return withOffset(linear, tensor.Zeros(tensor.Shape{s.batch, d, 1}, s.backend)), nil
}

// Inverse returns a shearing sharing these parameters that evaluates the
// inverse matrix.
func (s *Shearing) Inverse() (Transform, error) {
	inv, err := NewShearing(s.grid, s.backend, s.batch, LinkedParams(s))
	if err != nil {
		return nil, err
	}
	inv.invert = !s.invert
	return inv, nil
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (s *Shearing) Clone() *Shearing {
	c := *s
	c.cloneInto(&c)
	return &c
}

// Homogeneous is an unconstrained affine transform. Parameters are the
// homogeneous matrices themselves, shape (N, D, D+1).
type Homogeneous struct {
	linearBase
}

// NewHomogeneous creates an unconstrained affine transform.
func NewHomogeneous(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Homogeneous, error) {
	h := &Homogeneous{}
	if err := h.initLinear(g, b, batch, spec, h); err != nil {
		return nil, err
	}
	if h.kind == ParamsOptimizable && spec.init == nil {
		// Zero parameters would collapse all points; start at the identity.
		if err := h.SetIdentity(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ParamShape returns (N, D, D+1).
func (h *Homogeneous) ParamShape() tensor.Shape {
	d := h.Dim()
	return tensor.Shape{h.batch, d, d + 1}
}

// SetIdentity resets the parameters to the identity mapping.
func (h *Homogeneous) SetIdentity() error {
	if h.params == nil {
		return ErrParametersRequired
	}
	copy(h.params.Data(), homIdentity(h.batch, h.Dim(), h.backend).Data())
	h.MarkDirty()
	return nil
}

func (h *Homogeneous) matrixFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	if !invert {
		return p, nil
	}
	// Matrix inversion is evaluated numerically; gradients do not flow
	// through the inverse application.
	return invertHomogeneous(p.Detach(), h.backend)
}

// Inverse returns an affine transform sharing these parameters that
// evaluates the numeric matrix inverse.
func (h *Homogeneous) Inverse() (Transform, error) {
	inv, err := NewHomogeneous(h.grid, h.backend, h.batch, LinkedParams(h))
	if err != nil {
		return nil, err
	}
	inv.invert = !h.invert
	return inv, nil
}

// SetMatrix assigns the homogeneous matrices directly.
func (h *Homogeneous) SetMatrix(m *tensor.Tensor) error {
	return h.SetParams(m)
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (h *Homogeneous) Clone() *Homogeneous {
	c := *h
	c.cloneInto(&c)
	return &c
}

// invertHomogeneous inverts a batch of homogeneous matrices (N, D, D+1).
func invertHomogeneous(m *tensor.Tensor, b tensor.Backend) (*tensor.Tensor, error) {
	shape := m.Shape()
	n, d := shape[0], shape[1]
	out := tensor.Zeros(shape, b)
	md, od := m.Data(), out.Data()
	for g := 0; g < n; g++ {
		a := mat.NewDense(d, d, nil)
		for r := 0; r < d; r++ {
			for c := 0; c < d; c++ {
				a.Set(r, c, md[g*d*(d+1)+r*(d+1)+c])
			}
		}
		var inv mat.Dense
		if err := inv.Inverse(a); err != nil {
			return nil, fmt.Errorf("%w: singular transformation matrix: %v", ErrUnsupportedOperation, err)
		}
		for r := 0; r < d; r++ {
			for c := 0; c < d; c++ {
				od[g*d*(d+1)+r*(d+1)+c] = inv.At(r, c)
			}
			sum := 0.0
			for k := 0; k < d; k++ {
				sum -= inv.At(r, k) * md[g*d*(d+1)+k*(d+1)+d]
			}
			od[g*d*(d+1)+r*(d+1)+d] = sum
		}
	}
	return out, nil
}
