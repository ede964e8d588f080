package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp-ml/warp/internal/backend/cpu"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// constantParams builds a dense parameter tensor of the given shape with a
// constant value per vector channel.
func constantParams(t *testing.T, b tensor.Backend, shape tensor.Shape, vec []float64) *tensor.Tensor {
	t.Helper()
	p := tensor.Zeros(shape, b)
	n := p.NumElements() / (shape[0] * shape[1])
	data := p.Data()
	for g := 0; g < shape[0]; g++ {
		for c := 0; c < shape[1]; c++ {
			base := (g*shape[1] + c) * n
			for i := 0; i < n; i++ {
				data[base+i] = vec[c]
			}
		}
	}
	return p
}

// TestDenseDisplacement_ParamsAreField verifies the parameters are used as
// the displacement buffer directly.
func TestDenseDisplacement_ParamsAreField(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})

	tr, err := NewDenseDisplacement(g, backend, 1, OptimizableParams())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 8, 8}, tr.ParamShape())

	// Zero parameters are the identity.
	out, err := tr.Points(points(t, backend, 2, 0.25, -0.25))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, out.Data()[0], 1e-12)

	require.NoError(t, tr.SetParams(constantParams(t, backend, tr.ParamShape(), []float64{0.1, -0.2})))
	out, err = tr.Points(points(t, backend, 2, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, out.Data()[0], 1e-9)
	assert.InDelta(t, -0.2, out.Data()[1], 1e-9)
}

// TestDenseDisplacement_NoInverse verifies free displacement fields reject
// inversion.
func TestDenseDisplacement_NoInverse(t *testing.T) {
	backend := cpu.New()
	tr, err := NewDenseDisplacement(grid.MustNew([]int{8, 8}), backend, 1, OptimizableParams())
	require.NoError(t, err)

	_, err = tr.Inverse()
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

// TestNonRigid_SetGrid verifies dense parameterizations reject grid size
// changes but accept metadata changes.
func TestNonRigid_SetGrid(t *testing.T) {
	backend := cpu.New()
	tr, err := NewDenseDisplacement(grid.MustNew([]int{8, 8}), backend, 1, OptimizableParams())
	require.NoError(t, err)

	err = tr.SetGrid(grid.MustNew([]int{10, 10}))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	resized := grid.MustNew([]int{8, 8}, grid.WithSpacing(2, 2))
	require.NoError(t, tr.SetGrid(resized))
	assert.Equal(t, 2.0, tr.Grid().Spacing()[0])
}

// TestStationaryVelocity_ZeroIsIdentity verifies exp(0) = id.
func TestStationaryVelocity_ZeroIsIdentity(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{16, 16})

	tr, err := NewStationaryVelocity(g, backend, 1, 0, OptimizableParams())
	require.NoError(t, err)
	assert.Equal(t, DefaultSquaringSteps, tr.Steps())

	out, err := tr.Points(points(t, backend, 2, 0.1, -0.3))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, out.Data()[0], 1e-12)
	assert.InDelta(t, -0.3, out.Data()[1], 1e-12)
}

// TestStationaryVelocity_ConstantVelocity verifies a small constant
// velocity integrates to the same constant displacement in the interior.
func TestStationaryVelocity_ConstantVelocity(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{16, 16})

	tr, err := NewStationaryVelocity(g, backend, 1, 0, OptimizableParams())
	require.NoError(t, err)
	require.NoError(t, tr.SetParams(constantParams(t, backend, tr.ParamShape(), []float64{0.05, 0})))

	out, err := tr.Points(points(t, backend, 2, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.05, out.Data()[0], 1e-6)
	assert.InDelta(t, 0, out.Data()[1], 1e-6)
}

// TestStationaryVelocity_InverseRoundTrip verifies exp(-v) inverts exp(v)
// away from the boundary.
func TestStationaryVelocity_InverseRoundTrip(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{16, 16})

	tr, err := NewStationaryVelocity(g, backend, 1, 0, OptimizableParams())
	require.NoError(t, err)
	require.NoError(t, tr.SetParams(constantParams(t, backend, tr.ParamShape(), []float64{0.05, -0.03})))

	inv, err := tr.Inverse()
	require.NoError(t, err)

	p := points(t, backend, 2, 0, 0.1)
	fwd, err := tr.Points(p)
	require.NoError(t, err)
	back, err := inv.Points(fwd)
	require.NoError(t, err)
	assert.InDelta(t, 0, back.Data()[0], 1e-5)
	assert.InDelta(t, 0.1, back.Data()[1], 1e-5)
}

// TestFreeFormDeformation_Lattice verifies the control lattice geometry.
func TestFreeFormDeformation_Lattice(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{32, 32})

	tr, err := NewFreeFormDeformation(g, backend, 1, []int{4, 4}, OptimizableParams())
	require.NoError(t, err)
	assert.Equal(t, []int{11, 11}, tr.ControlShape())
	assert.Equal(t, tensor.Shape{1, 2, 11, 11}, tr.ParamShape())
	assert.Equal(t, []int{4, 4}, tr.Stride())
}

// TestFreeFormDeformation_StrideValidation verifies stride checks.
func TestFreeFormDeformation_StrideValidation(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{32, 32})

	_, err := NewFreeFormDeformation(g, backend, 1, []int{4}, OptimizableParams())
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = NewFreeFormDeformation(g, backend, 1, []int{4, 0}, OptimizableParams())
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

// TestFreeFormDeformation_ConstantCoefficients verifies the spline
// reproduces constant displacements exactly.
func TestFreeFormDeformation_ConstantCoefficients(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{32, 32})

	tr, err := NewFreeFormDeformation(g, backend, 1, []int{4, 4}, OptimizableParams())
	require.NoError(t, err)

	// Zero coefficients are the identity.
	out, err := tr.Points(points(t, backend, 2, 0.5, -0.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Data()[0], 1e-12)

	// The cubic basis sums to one, so constant coefficients evaluate to a
	// constant field.
	require.NoError(t, tr.SetParams(tensor.Full(tr.ParamShape(), 0.25, backend)))
	u, err := tr.DisplacementField()
	require.NoError(t, err)
	for i, v := range u.Data() {
		assert.InDelta(t, 0.25, v, 1e-9, "element %d", i)
	}
}

// TestFreeFormDeformation_NoInverse verifies FFDs reject inversion.
func TestFreeFormDeformation_NoInverse(t *testing.T) {
	backend := cpu.New()
	tr, err := NewFreeFormDeformation(grid.MustNew([]int{32, 32}), backend, 1, []int{4, 4}, OptimizableParams())
	require.NoError(t, err)

	_, err = tr.Inverse()
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

// TestSVFFD_InverseRoundTrip verifies the B-spline velocity transform is
// invertible.
func TestSVFFD_InverseRoundTrip(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{16, 16})

	tr, err := NewStationaryVelocityFreeFormDeformation(g, backend, 1, []int{4, 4}, 0, OptimizableParams())
	require.NoError(t, err)
	assert.Equal(t, DefaultSquaringSteps, tr.Steps())
	assert.Equal(t, tensor.Shape{1, 2, 7, 7}, tr.ParamShape())

	// Constant velocity coefficients integrate to a constant interior
	// displacement.
	require.NoError(t, tr.SetParams(constantParams(t, backend, tr.ParamShape(), []float64{0.05, 0})))
	out, err := tr.Points(points(t, backend, 2, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.05, out.Data()[0], 1e-5)

	inv, err := tr.Inverse()
	require.NoError(t, err)
	back, err := inv.Points(out)
	require.NoError(t, err)
	assert.InDelta(t, 0, back.Data()[0], 1e-4)
	assert.InDelta(t, 0, back.Data()[1], 1e-4)
}

// TestClone_NonRigidOwnsField verifies a cloned field transform keeps its
// own parameter field and cache.
func TestClone_NonRigidOwnsField(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})

	tr, err := NewDenseDisplacement(g, backend, 1, OptimizableParams())
	require.NoError(t, err)
	require.NoError(t, tr.SetParams(constantParams(t, backend, tr.ParamShape(), []float64{0.25, 0})))

	c := tr.Clone()
	require.NoError(t, c.SetParams(constantParams(t, backend, c.ParamShape(), []float64{-0.25, 0})))

	u, err := tr.DisplacementField()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, u.Data()[0], 1e-12)

	cu, err := c.DisplacementField()
	require.NoError(t, err)
	assert.InDelta(t, -0.25, cu.Data()[0], 1e-12)

	// The B-spline clone owns its stride slice as well.
	ffd, err := NewFreeFormDeformation(grid.MustNew([]int{32, 32}), backend, 1, []int{4, 4}, OptimizableParams())
	require.NoError(t, err)
	fc := ffd.Clone()
	fc.stride[0] = 8
	assert.Equal(t, []int{4, 4}, ffd.Stride())
}
