package spatial

import (
	"context"
	"fmt"
	"math"

	"github.com/warp-ml/warp/internal/autodiff"
	"github.com/warp-ml/warp/internal/flow"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/losses"
	"github.com/warp-ml/warp/internal/optim"
)

// FitOptions controls the iterative approximation of a target flow field.
type FitOptions struct {
	// Steps is the maximum number of optimization steps (default 1000).
	Steps int

	// LearningRate is the Adam step size (default 0.1).
	LearningRate float64

	// Epsilon stops the optimization when the loss improvement between
	// consecutive steps falls below it (default 1e-5).
	Epsilon float64

	// Optimizer overrides the default Adam optimizer.
	Optimizer optim.Optimizer
}

// FitResult reports the outcome of a fit.
type FitResult struct {
	Loss      float64
	Steps     int
	Converged bool
}

// Fit adjusts the transform's optimizable parameters so its displacement
// field approximates the target. The transform must be built on an
// autodiff backend.
func Fit(ctx context.Context, t Transform, target flow.Field, opts FitOptions) (*FitResult, error) {
	ad, ok := t.Backend().(*autodiff.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: fit requires an autodiff backend, have %s",
			ErrUnsupportedOperation, t.Backend().Name())
	}
	params := t.Parameters()
	if len(params) == 0 {
		return nil, ErrNoOptimizableParameters
	}
	if !target.Grid().Equal(t.Grid()) {
		return nil, fmt.Errorf("%w: target field grid %v does not match transform grid %v",
			ErrShapeMismatch, target.Grid(), t.Grid())
	}
	if opts.Steps <= 0 {
		opts.Steps = 1000
	}
	if opts.LearningRate == 0 {
		opts.LearningRate = 0.1
	}
	if opts.Epsilon == 0 {
		opts.Epsilon = 1e-5
	}
	opt := opts.Optimizer
	if opt == nil {
		opt = optim.NewAdam(params, optim.AdamConfig{LR: opts.LearningRate})
	}

	domain := grid.FromAlignCorners(t.Grid().AlignCorners())
	targetField, err := target.ToDomain(domain, ad.Inner())
	if err != nil {
		return nil, err
	}
	return fitLoop(ctx, t, targetField, ad, opt, opts)
}

func fitLoop(ctx context.Context, t Transform, target flow.Field, ad *autodiff.Backend, opt optim.Optimizer, opts FitOptions) (*FitResult, error) {
	targetTensor := target.Tensor().Detach()
	tape := ad.Tape()
	result := &FitResult{Loss: math.Inf(1)}
	prev := math.Inf(1)

	for step := 0; step < opts.Steps; step++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		tape.Clear()
		tape.StartRecording()
		t.MarkDirty()
		u, err := Displacement(t)
		if err != nil {
			tape.StopRecording()
			return result, err
		}
		loss := losses.MSE(u.Tensor(), targetTensor)
		tape.StopRecording()

		grads := ad.Backward(loss.Raw())
		opt.Step(grads)
		t.MarkDirty()

		result.Loss = loss.Item()
		result.Steps = step + 1
		if math.Abs(prev-result.Loss) < opts.Epsilon {
			result.Converged = true
			break
		}
		prev = result.Loss
	}
	tape.Clear()
	return result, t.Update()
}
