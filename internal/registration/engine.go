// Package registration implements iterative pairwise image registration:
// the parameters of a spatial transform are optimized so that the moving
// image warped by the transform matches the fixed image.
package registration

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/warp-ml/warp/internal/autodiff"
	"github.com/warp-ml/warp/internal/flow"
	"github.com/warp-ml/warp/internal/image"
	"github.com/warp-ml/warp/internal/losses"
	"github.com/warp-ml/warp/internal/optim"
	"github.com/warp-ml/warp/internal/spatial"
	"github.com/warp-ml/warp/internal/tensor"
)

// Similarity selects the image similarity term.
type Similarity string

// Supported similarity terms.
const (
	SimilarityMSE Similarity = "mse"
	SimilaritySSD Similarity = "ssd"
	SimilarityNCC Similarity = "ncc"
)

// Weights scales the deformation regularizers added to the similarity
// term.
type Weights struct {
	Diffusion     float64 `yaml:"diffusion,omitempty"`
	BendingEnergy float64 `yaml:"bending_energy,omitempty"`
}

// Options configures a registration run.
type Options struct {
	Iterations   int        `yaml:"iterations,omitempty"`    // default 100
	LearningRate float64    `yaml:"learning_rate,omitempty"` // default 0.01
	Epsilon      float64    `yaml:"epsilon,omitempty"`       // default 1e-6
	Similarity   Similarity `yaml:"similarity,omitempty"`    // default mse
	Weights      Weights    `yaml:"weights,omitempty"`
	LogEvery     int        `yaml:"log_every,omitempty"` // default 10
}

// Result reports the outcome of a registration run.
type Result struct {
	SessionID  string
	Loss       float64
	Iterations int
	Converged  bool
	Warped     *tensor.Tensor
}

// Engine runs pairwise registrations on an autodiff backend.
type Engine struct {
	backend *autodiff.Backend
	logger  *log.Logger
}

// New creates a registration engine.
func New(backend *autodiff.Backend) *Engine {
	return &Engine{
		backend: backend,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "registration"}),
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(logger *log.Logger) {
	e.logger = logger
}

// Register optimizes the transform so the moving image warped by it
// matches the fixed image. The transform must be built on the engine's
// backend and defined on the fixed image grid.
func (e *Engine) Register(ctx context.Context, fixed, moving image.Image, t spatial.Transform, opts Options) (*Result, error) {
	if opts.Iterations <= 0 {
		opts.Iterations = 100
	}
	if opts.LearningRate == 0 {
		opts.LearningRate = 0.01
	}
	if opts.Epsilon == 0 {
		opts.Epsilon = 1e-6
	}
	if opts.Similarity == "" {
		opts.Similarity = SimilarityMSE
	}
	if opts.LogEvery <= 0 {
		opts.LogEvery = 10
	}
	similarity, err := similarityFunc(opts.Similarity)
	if err != nil {
		return nil, err
	}
	if !fixed.Grid().Equal(t.Grid()) {
		return nil, fmt.Errorf("%w: transform grid does not match fixed image grid",
			spatial.ErrShapeMismatch)
	}
	params := t.Parameters()
	if len(params) == 0 {
		return nil, spatial.ErrNoOptimizableParameters
	}

	session := uuid.NewString()
	logger := e.logger.With("session", session)
	logger.Info("starting registration",
		"similarity", opts.Similarity,
		"iterations", opts.Iterations,
		"lr", opts.LearningRate,
		"parameters", countElements(params),
	)

	opt := optim.NewAdam(params, optim.AdamConfig{LR: opts.LearningRate})
	tape := e.backend.Tape()
	result := &Result{SessionID: session, Loss: math.Inf(1)}
	fixedTensor := fixed.Tensor().Detach()
	movingTensor := moving.Tensor().Detach()
	prev := math.Inf(1)

	for iter := 0; iter < opts.Iterations; iter++ {
		select {
		case <-ctx.Done():
			logger.Warn("registration canceled", "iteration", iter)
			return result, ctx.Err()
		default:
		}

		tape.Clear()
		tape.StartRecording()
		t.MarkDirty()

		u, err := spatial.Displacement(t)
		if err != nil {
			tape.StopRecording()
			return result, err
		}
		warped, err := flow.Warp(movingTensor, u, e.backend)
		if err != nil {
			tape.StopRecording()
			return result, err
		}
		loss := similarity(warped, fixedTensor)
		if opts.Weights.Diffusion > 0 {
			loss = loss.Add(losses.Diffusion(u.Tensor()).MulScalar(opts.Weights.Diffusion))
		}
		if opts.Weights.BendingEnergy > 0 {
			loss = loss.Add(losses.BendingEnergy(u.Tensor()).MulScalar(opts.Weights.BendingEnergy))
		}
		tape.StopRecording()

		grads := e.backend.Backward(loss.Raw())
		opt.Step(grads)
		t.MarkDirty()

		result.Loss = loss.Item()
		result.Iterations = iter + 1
		if iter%opts.LogEvery == 0 {
			logger.Info("iteration", "step", iter, "loss", result.Loss)
		}
		if math.Abs(prev-result.Loss) < opts.Epsilon {
			result.Converged = true
			logger.Info("converged", "iteration", iter, "loss", result.Loss)
			break
		}
		prev = result.Loss
	}
	tape.Clear()

	if err := t.Update(); err != nil {
		return result, err
	}
	u, err := spatial.Displacement(t)
	if err != nil {
		return result, err
	}
	warped, err := flow.Warp(movingTensor, u, e.backend.Inner())
	if err != nil {
		return result, err
	}
	result.Warped = warped
	logger.Info("finished registration",
		"iterations", result.Iterations,
		"loss", result.Loss,
		"converged", result.Converged,
	)
	return result, nil
}

func similarityFunc(s Similarity) (func(a, b *tensor.Tensor) *tensor.Tensor, error) {
	switch s {
	case SimilarityMSE:
		return losses.MSE, nil
	case SimilaritySSD:
		return losses.SSD, nil
	case SimilarityNCC:
		return losses.NCC, nil
	default:
		return nil, fmt.Errorf("unknown similarity term %q", s)
	}
}

func countElements(params []*tensor.Tensor) int {
	n := 0
	for _, p := range params {
		n += p.NumElements()
	}
	return n
}
