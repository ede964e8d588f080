package spatial

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/num/quat"

	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// DefaultRotationOrder is the Euler angle convention used when none is
// given: a rotation about Z, then Y, then X applied to column vectors as
// Rz·Ry·Rx.
const DefaultRotationOrder = "ZYX"

// EulerRotation rotates points about the grid center. In two dimensions the
// parameters are a single angle per batch element, (N, 1). In three
// dimensions they are Euler angles (N, 3) interpreted according to the
// rotation order.
type EulerRotation struct {
	linearBase
	order string
}

// NewEulerRotation creates a rotation on the given grid. An empty order
// selects DefaultRotationOrder; the order is ignored for two dimensions.
func NewEulerRotation(g grid.Grid, b tensor.Backend, batch int, order string, spec ParamsSpec) (*EulerRotation, error) {
	d := g.Dim()
	if d != 2 && d != 3 {
		return nil, fmt.Errorf("%w: rotation supports 2 or 3 dimensions, got %d", ErrUnsupportedOperation, d)
	}
	if order == "" {
		order = DefaultRotationOrder
	}
	order = strings.ToUpper(order)
	if d == 3 {
		if len(order) != 3 {
			return nil, fmt.Errorf("%w: rotation order must name three axes, got %q", ErrInvalidModel, order)
		}
		for _, r := range order {
			if r != 'X' && r != 'Y' && r != 'Z' {
				return nil, fmt.Errorf("%w: invalid rotation axis %q in order %q", ErrInvalidModel, r, order)
			}
		}
	}
	e := &EulerRotation{order: order}
	if err := e.initLinear(g, b, batch, spec, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Order returns the Euler angle convention.
func (e *EulerRotation) Order() string {
	return e.order
}

// ParamShape returns (N, 1) for two dimensions and (N, 3) for three.
func (e *EulerRotation) ParamShape() tensor.Shape {
	if e.Dim() == 2 {
		return tensor.Shape{e.batch, 1}
	}
	return tensor.Shape{e.batch, 3}
}

func (e *EulerRotation) matrixFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	d := e.Dim()
	angles := p
	if invert {
		angles = p.Neg()
	}
	var linear *tensor.Tensor
	if d == 2 {
		a := scalarEntry(angles, 0)
		c, s := a.Cos(), a.Sin()
		maskC := basisMatrix(0, 0, 2, e.backend).Add(basisMatrix(1, 1, 2, e.backend))
		maskS := basisMatrix(1, 0, 2, e.backend).Sub(basisMatrix(0, 1, 2, e.backend))
		linear = c.Mul(maskC).Add(s.Mul(maskS))
	} else {
		order := e.order
		indices := []int{0, 1, 2}
		if invert {
			// R(a)^-1 = R_last(-a_last)·...·R_first(-a_first)
			order = reverseString(order)
			indices = []int{2, 1, 0}
		}
		for pos, axisName := range order {
			axis := int(axisName - 'X')
			a := scalarEntry(angles, indices[pos])
			r := e.axisRotation(axis, a.Cos(), a.Sin())
			if linear == nil {
				linear = r
			} else {
				linear = linear.BatchMatMul(r)
			}
		}
	}
	return withOffset(linear, tensor.Zeros(tensor.Shape{e.batch, d, 1}, e.backend)), nil
}

// axisRotation builds batched elementary rotation matrices about an axis.
func (e *EulerRotation) axisRotation(axis int, c, s *tensor.Tensor) *tensor.Tensor {
	i, j := (axis+1)%3, (axis+2)%3
	b := e.backend
	fixed := basisMatrix(axis, axis, 3, b)
	maskC := basisMatrix(i, i, 3, b).Add(basisMatrix(j, j, 3, b))
	maskS := basisMatrix(j, i, 3, b).Sub(basisMatrix(i, j, 3, b))
	return fixed.Add(c.Mul(maskC)).Add(s.Mul(maskS))
}

// Inverse returns a rotation sharing these parameters that evaluates the
// transposed matrix.
func (e *EulerRotation) Inverse() (Transform, error) {
	inv, err := NewEulerRotation(e.grid, e.backend, e.batch, e.order, LinkedParams(e))
	if err != nil {
		return nil, err
	}
	inv.invert = !e.invert
	return inv, nil
}

// SetMatrix extracts rotation angles from homogeneous matrices. Only the
// default ZYX convention supports extraction in three dimensions.
func (e *EulerRotation) SetMatrix(m *tensor.Tensor) error {
	d := e.Dim()
	want := tensor.Shape{e.batch, d, d + 1}
	if !m.Shape().Equal(want) {
		return fmt.Errorf("%w: expected matrices of shape %v, got %v", ErrShapeMismatch, want, m.Shape())
	}
	p := tensor.Zeros(e.ParamShape(), e.backend)
	md, pd := m.Data(), p.Data()
	row := d + 1
	if d == 2 {
		for g := 0; g < e.batch; g++ {
			base := g * d * row
			pd[g] = math.Atan2(md[base+1*row+0], md[base+0*row+0])
		}
		return e.SetParams(p)
	}
	if e.order != DefaultRotationOrder {
		return fmt.Errorf("%w: angle extraction requires rotation order %s, have %s",
			ErrUnsupportedOperation, DefaultRotationOrder, e.order)
	}
	for g := 0; g < e.batch; g++ {
		base := g * d * row
		at := func(r, c int) float64 { return md[base+r*row+c] }
		pd[g*3+0] = math.Atan2(at(1, 0), at(0, 0))
		pd[g*3+1] = math.Asin(clamp(-at(2, 0), -1, 1))
		pd[g*3+2] = math.Atan2(at(2, 1), at(2, 2))
	}
	return e.SetParams(p)
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (e *EulerRotation) Clone() *EulerRotation {
	c := *e
	c.cloneInto(&c)
	return &c
}

func reverseString(s string) string {
	r := []byte(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// QuaternionRotation rotates three-dimensional points using unit
// quaternions. Parameters have shape (N, 4) ordered (w, x, y, z) and are
// normalized during evaluation, so optimization steps cannot leave the
// rotation manifold.
type QuaternionRotation struct {
	linearBase
}

// NewQuaternionRotation creates a quaternion rotation on the given grid.
func NewQuaternionRotation(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*QuaternionRotation, error) {
	if g.Dim() != 3 {
		return nil, fmt.Errorf("%w: quaternion rotation requires 3 dimensions, got %d", ErrUnsupportedOperation, g.Dim())
	}
	q := &QuaternionRotation{}
	if err := q.initLinear(g, b, batch, spec, q); err != nil {
		return nil, err
	}
	if q.kind == ParamsOptimizable && spec.init == nil {
		// The zero quaternion has no direction; start at the identity.
		data := q.params.Data()
		for g := 0; g < batch; g++ {
			data[g*4] = 1
		}
	}
	return q, nil
}

// ParamShape returns (N, 4).
func (q *QuaternionRotation) ParamShape() tensor.Shape {
	return tensor.Shape{q.batch, 4}
}

func (q *QuaternionRotation) matrixFromParams(p *tensor.Tensor, invert bool) (*tensor.Tensor, error) {
	b := q.backend
	norm := p.Mul(p).SumDim(1, true).Sqrt()
	qn := p.Div(norm)
	if invert {
		conj, err := tensor.FromSlice([]float64{1, -1, -1, -1}, tensor.Shape{1, 4}, b)
		if err != nil {
			return nil, err
		}
		qn = qn.Mul(conj)
	}
	w := scalarEntry(qn, 0)
	x := scalarEntry(qn, 1)
	y := scalarEntry(qn, 2)
	z := scalarEntry(qn, 3)

	term := func(v *tensor.Tensor, scale float64, i, j int) *tensor.Tensor {
		return v.MulScalar(scale).Mul(basisMatrix(i, j, 3, b))
	}
	linear := eyeBatch(q.batch, 3, b).
		Add(term(y.Mul(y).Add(z.Mul(z)), -2, 0, 0)).
		Add(term(x.Mul(x).Add(z.Mul(z)), -2, 1, 1)).
		Add(term(x.Mul(x).Add(y.Mul(y)), -2, 2, 2)).
		Add(term(x.Mul(y).Sub(w.Mul(z)), 2, 0, 1)).
		Add(term(x.Mul(z).Add(w.Mul(y)), 2, 0, 2)).
		Add(term(x.Mul(y).Add(w.Mul(z)), 2, 1, 0)).
		Add(term(y.Mul(z).Sub(w.Mul(x)), 2, 1, 2)).
		Add(term(x.Mul(z).Sub(w.Mul(y)), 2, 2, 0)).
		Add(term(y.Mul(z).Add(w.Mul(x)), 2, 2, 1))
	return withOffset(linear, tensor.Zeros(tensor.Shape{q.batch, 3, 1}, b)), nil
}

// Inverse returns a rotation sharing these parameters that evaluates the
// conjugate quaternion.
func (q *QuaternionRotation) Inverse() (Transform, error) {
	inv, err := NewQuaternionRotation(q.grid, q.backend, q.batch, LinkedParams(q))
	if err != nil {
		return nil, err
	}
	inv.invert = !q.invert
	return inv, nil
}

// SetMatrix extracts unit quaternions from rotation matrices using
// Shepperd's method.
func (q *QuaternionRotation) SetMatrix(m *tensor.Tensor) error {
	want := tensor.Shape{q.batch, 3, 4}
	if !m.Shape().Equal(want) {
		return fmt.Errorf("%w: expected matrices of shape %v, got %v", ErrShapeMismatch, want, m.Shape())
	}
	p := tensor.Zeros(q.ParamShape(), q.backend)
	md, pd := m.Data(), p.Data()
	for g := 0; g < q.batch; g++ {
		base := g * 12
		at := func(r, c int) float64 { return md[base+r*4+c] }
		var qt quat.Number
		trace := at(0, 0) + at(1, 1) + at(2, 2)
		switch {
		case trace > 0:
			s := math.Sqrt(trace + 1)
			qt = quat.Number{
				Real: s / 2,
				Imag: (at(2, 1) - at(1, 2)) / (2 * s),
				Jmag: (at(0, 2) - at(2, 0)) / (2 * s),
				Kmag: (at(1, 0) - at(0, 1)) / (2 * s),
			}
		case at(0, 0) >= at(1, 1) && at(0, 0) >= at(2, 2):
			s := math.Sqrt(1 + at(0, 0) - at(1, 1) - at(2, 2))
			qt = quat.Number{
				Real: (at(2, 1) - at(1, 2)) / (2 * s),
				Imag: s / 2,
				Jmag: (at(0, 1) + at(1, 0)) / (2 * s),
				Kmag: (at(0, 2) + at(2, 0)) / (2 * s),
			}
		case at(1, 1) >= at(2, 2):
			s := math.Sqrt(1 - at(0, 0) + at(1, 1) - at(2, 2))
			qt = quat.Number{
				Real: (at(0, 2) - at(2, 0)) / (2 * s),
				Imag: (at(0, 1) + at(1, 0)) / (2 * s),
				Jmag: s / 2,
				Kmag: (at(1, 2) + at(2, 1)) / (2 * s),
			}
		default:
			s := math.Sqrt(1 - at(0, 0) - at(1, 1) + at(2, 2))
			qt = quat.Number{
				Real: (at(1, 0) - at(0, 1)) / (2 * s),
				Imag: (at(0, 2) + at(2, 0)) / (2 * s),
				Jmag: (at(1, 2) + at(2, 1)) / (2 * s),
				Kmag: s / 2,
			}
		}
		qt = quat.Scale(1/quat.Abs(qt), qt)
		pd[g*4+0] = qt.Real
		pd[g*4+1] = qt.Imag
		pd[g*4+2] = qt.Jmag
		pd[g*4+3] = qt.Kmag
	}
	return q.SetParams(p)
}

// Clone returns a copy with owned parameters, see Translation.Clone.
func (q *QuaternionRotation) Clone() *QuaternionRotation {
	c := *q
	c.cloneInto(&c)
	return &c
}
