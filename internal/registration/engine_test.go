package registration

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp-ml/warp/internal/autodiff"
	"github.com/warp-ml/warp/internal/backend/cpu"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/image"
	"github.com/warp-ml/warp/internal/losses"
	"github.com/warp-ml/warp/internal/spatial"
	"github.com/warp-ml/warp/internal/tensor"
)

func quietEngine(backend *autodiff.Backend) *Engine {
	e := New(backend)
	e.SetLogger(log.New(io.Discard))
	return e
}

// blob builds an image with a Gaussian blob centered at (cx, cy) in voxel
// units.
func blob(t *testing.T, g grid.Grid, cx, cy, sigma float64, b tensor.Backend) image.Image {
	t.Helper()
	size := g.Size()
	data := make([]float64, size[0]*size[1])
	for y := 0; y < size[1]; y++ {
		for x := 0; x < size[0]; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			data[y*size[0]+x] = math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
		}
	}
	raw, err := tensor.FromSlice(data, tensor.Shape{1, 1, size[1], size[0]}, b)
	require.NoError(t, err)
	im, err := image.New(raw, g)
	require.NoError(t, err)
	return im
}

// TestRegister_IdenticalImages verifies registration of an image to itself
// converges immediately.
func TestRegister_IdenticalImages(t *testing.T) {
	ad := autodiff.New(cpu.New())
	g := grid.MustNew([]int{16, 16})
	im := blob(t, g, 8, 8, 3, ad)

	tr, err := spatial.NewTranslation(g, ad, 1, spatial.OptimizableParams())
	require.NoError(t, err)

	engine := quietEngine(ad)
	result, err := engine.Register(context.Background(), im, im, tr, Options{Iterations: 50})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.True(t, result.Converged)
	assert.Less(t, result.Loss, 1e-6)
	require.NotNil(t, result.Warped)
	assert.Equal(t, tensor.Shape{1, 1, 16, 16}, result.Warped.Shape())
}

// TestRegister_RecoversShift verifies a translation model reduces the
// similarity loss between shifted blobs.
func TestRegister_RecoversShift(t *testing.T) {
	ad := autodiff.New(cpu.New())
	g := grid.MustNew([]int{16, 16})
	moving := blob(t, g, 8, 8, 3, ad)
	fixed := blob(t, g, 10, 8, 3, ad)

	initial := losses.MSE(moving.Tensor().Detach(), fixed.Tensor().Detach()).Item()

	tr, err := spatial.NewTranslation(g, ad, 1, spatial.OptimizableParams())
	require.NoError(t, err)

	engine := quietEngine(ad)
	result, err := engine.Register(context.Background(), fixed, moving, tr,
		Options{Iterations: 200, LearningRate: 0.05, Epsilon: 1e-12})
	require.NoError(t, err)
	assert.Less(t, result.Loss, initial/2)

	// The recovered offset samples the moving blob two voxels to the left.
	p, err := tr.Params()
	require.NoError(t, err)
	assert.Less(t, p.Data()[0], -0.05)
	assert.InDelta(t, 0, p.Data()[1], 0.1)
}

// TestRegister_Regularized verifies deformation regularizers contribute to
// the loss without breaking the loop.
func TestRegister_Regularized(t *testing.T) {
	ad := autodiff.New(cpu.New())
	g := grid.MustNew([]int{16, 16})
	moving := blob(t, g, 8, 8, 3, ad)
	fixed := blob(t, g, 9, 8, 3, ad)

	tr, err := spatial.NewDenseDisplacement(g, ad, 1, spatial.OptimizableParams())
	require.NoError(t, err)

	engine := quietEngine(ad)
	result, err := engine.Register(context.Background(), fixed, moving, tr, Options{
		Iterations: 5,
		Weights:    Weights{Diffusion: 0.1, BendingEnergy: 0.01},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Iterations, 1)
	assert.LessOrEqual(t, result.Iterations, 5)
	assert.NotNil(t, result.Warped)
}

// TestRegister_GridMismatch verifies the transform must live on the fixed
// image grid.
func TestRegister_GridMismatch(t *testing.T) {
	ad := autodiff.New(cpu.New())
	fixed := blob(t, grid.MustNew([]int{16, 16}), 8, 8, 3, ad)
	moving := blob(t, grid.MustNew([]int{16, 16}), 8, 8, 3, ad)

	tr, err := spatial.NewTranslation(grid.MustNew([]int{12, 12}), ad, 1, spatial.OptimizableParams())
	require.NoError(t, err)

	_, err = quietEngine(ad).Register(context.Background(), fixed, moving, tr, Options{})
	assert.ErrorIs(t, err, spatial.ErrShapeMismatch)
}

// TestRegister_NoOptimizableParameters verifies fixed transforms are
// rejected.
func TestRegister_NoOptimizableParameters(t *testing.T) {
	ad := autodiff.New(cpu.New())
	g := grid.MustNew([]int{16, 16})
	im := blob(t, g, 8, 8, 3, ad)

	tr, err := spatial.NewTranslation(g, ad, 1, spatial.FixedParams(tensor.Zeros(tensor.Shape{1, 2}, ad)))
	require.NoError(t, err)

	_, err = quietEngine(ad).Register(context.Background(), im, im, tr, Options{})
	assert.ErrorIs(t, err, spatial.ErrNoOptimizableParameters)
}

// TestRegister_UnknownSimilarity verifies similarity validation.
func TestRegister_UnknownSimilarity(t *testing.T) {
	ad := autodiff.New(cpu.New())
	g := grid.MustNew([]int{16, 16})
	im := blob(t, g, 8, 8, 3, ad)

	tr, err := spatial.NewTranslation(g, ad, 1, spatial.OptimizableParams())
	require.NoError(t, err)

	_, err = quietEngine(ad).Register(context.Background(), im, im, tr, Options{Similarity: "dice"})
	assert.Error(t, err)
}

// TestRegister_ContextCancellation verifies a canceled context stops the
// loop.
func TestRegister_ContextCancellation(t *testing.T) {
	ad := autodiff.New(cpu.New())
	g := grid.MustNew([]int{16, 16})
	im := blob(t, g, 8, 8, 3, ad)

	tr, err := spatial.NewTranslation(g, ad, 1, spatial.OptimizableParams())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = quietEngine(ad).Register(ctx, im, im, tr, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
