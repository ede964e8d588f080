package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp-ml/warp/internal/backend/cpu"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// TestSequential_Append verifies name and instance uniqueness.
func TestSequential_Append(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})
	seq := NewSequential(g, backend)

	tr, err := NewTranslation(g, backend, 1, OptimizableParams())
	require.NoError(t, err)
	require.NoError(t, seq.Append("translate", tr))
	assert.Equal(t, 1, seq.Len())
	assert.Equal(t, "translate", seq.Name(0))

	// Same instance again.
	assert.ErrorIs(t, seq.Append("again", tr), ErrDuplicateComponent)

	// Same name for a different instance.
	other, err := NewTranslation(g, backend, 1, OptimizableParams())
	require.NoError(t, err)
	assert.ErrorIs(t, seq.Append("translate", other), ErrDuplicateComponent)

	// Dimensionality mismatch.
	tr3, err := NewTranslation(grid.MustNew([]int{4, 4, 4}), backend, 1, OptimizableParams())
	require.NoError(t, err)
	assert.ErrorIs(t, seq.Append("volume", tr3), ErrShapeMismatch)

	got, ok := seq.Get("translate")
	assert.True(t, ok)
	assert.Equal(t, Transform(tr), got)
	_, ok = seq.Get("missing")
	assert.False(t, ok)
}

// TestSequential_PointsOrder verifies the first component applies first.
func TestSequential_PointsOrder(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})
	seq := NewSequential(g, backend)

	tr, err := NewTranslation(g, backend, 1, FixedParams(fromValues(t, backend, tensor.Shape{1, 2}, 0.25, 0)))
	require.NoError(t, err)
	sc, err := NewScaling(g, backend, 1, FixedParams(fromValues(t, backend, tensor.Shape{1, 2}, math.Log(2), math.Log(2))))
	require.NoError(t, err)
	require.NoError(t, seq.Append("translate", tr))
	require.NoError(t, seq.Append("scale", sc))

	// (0.5 + 0.25) * 2 = 1.5
	out, err := seq.Points(points(t, backend, 2, 0.5, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, out.Data()[0], 1e-12)
}

// TestSequential_Inverse verifies the inverse composes component inverses
// in reverse order.
func TestSequential_Inverse(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})
	seq := NewSequential(g, backend)

	tr, err := NewTranslation(g, backend, 1, FixedParams(fromValues(t, backend, tensor.Shape{1, 2}, 0.3, -0.1)))
	require.NoError(t, err)
	sc, err := NewScaling(g, backend, 1, FixedParams(fromValues(t, backend, tensor.Shape{1, 2}, 0.4, -0.6)))
	require.NoError(t, err)
	require.NoError(t, seq.Append("translate", tr))
	require.NoError(t, seq.Append("scale", sc))

	inv, err := seq.Inverse()
	require.NoError(t, err)

	p := points(t, backend, 2, 0.2, 0.7)
	fwd, err := seq.Points(p)
	require.NoError(t, err)
	back, err := inv.Points(fwd)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, back.Data()[0], 1e-12)
	assert.InDelta(t, 0.7, back.Data()[1], 1e-12)
}

// TestSequential_Matrix verifies the composed matrix matches the pointwise
// application when all components are linear.
func TestSequential_Matrix(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})
	seq := NewSequential(g, backend)

	tr, err := NewTranslation(g, backend, 1, FixedParams(fromValues(t, backend, tensor.Shape{1, 2}, 0.25, 0.5)))
	require.NoError(t, err)
	sc, err := NewScaling(g, backend, 1, FixedParams(fromValues(t, backend, tensor.Shape{1, 2}, math.Log(2), math.Log(2))))
	require.NoError(t, err)
	require.NoError(t, seq.Append("translate", tr))
	require.NoError(t, seq.Append("scale", sc))

	m, err := seq.Matrix()
	require.NoError(t, err)
	// A = S·T: linear diag(2), offset 2·t.
	want := []float64{
		2, 0, 0.5,
		0, 2, 1,
	}
	for i, v := range want {
		assert.InDelta(t, v, m.Data()[i], 1e-12, "entry %d", i)
	}
}

// TestSequential_MatrixRejectsNonLinear verifies non-linear components
// cannot be collapsed to matrices.
func TestSequential_MatrixRejectsNonLinear(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})
	seq := NewSequential(g, backend)

	ddf, err := NewDenseDisplacement(g, backend, 1, OptimizableParams())
	require.NoError(t, err)
	require.NoError(t, seq.Append("nonrigid", ddf))

	_, err = seq.Matrix()
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

// TestSequential_EmptyIsIdentity verifies an empty composition maps points
// to themselves and has an identity matrix.
func TestSequential_EmptyIsIdentity(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})
	seq := NewSequential(g, backend)

	p := points(t, backend, 2, 0.5, -0.5)
	out, err := seq.Points(p)
	require.NoError(t, err)
	assert.Equal(t, p, out)

	m, err := seq.Matrix()
	require.NoError(t, err)
	want := []float64{1, 0, 0, 0, 1, 0}
	for i, v := range want {
		assert.InDelta(t, v, m.Data()[i], 1e-12, "entry %d", i)
	}
}

// TestSequential_Parameters verifies parameter collection across
// components.
func TestSequential_Parameters(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{8, 8})
	seq := NewSequential(g, backend)

	tr, err := NewTranslation(g, backend, 1, OptimizableParams())
	require.NoError(t, err)
	fixed, err := NewScaling(g, backend, 1, FixedParams(tensor.Zeros(tensor.Shape{1, 2}, backend)))
	require.NoError(t, err)
	require.NoError(t, seq.Append("translate", tr))
	require.NoError(t, seq.Append("scale", fixed))

	// Only the optimizable component contributes.
	assert.Len(t, seq.Parameters(), 1)
}
