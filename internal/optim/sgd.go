package optim

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule with momentum µ:
//
//	v_t = µ * v_{t-1} + gradient
//	param = param - lr * v_t
type SGD struct {
	params   []*tensor.Tensor
	lr       float64
	momentum float64
	velocity map[*tensor.Tensor][]float64
}

// SGDConfig holds SGD hyperparameters.
type SGDConfig struct {
	LR       float64 // learning rate (default 0.01)
	Momentum float64 // momentum factor (default 0, disabled)
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*tensor.Tensor, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make(map[*tensor.Tensor][]float64),
	}
}

// Step applies one gradient descent update to all parameters.
func (s *SGD) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := gradient(param, grads)
		if grad == nil {
			continue
		}
		gd := grad.Data()
		pd := param.Data()
		if s.momentum == 0 {
			for i := range pd {
				pd[i] -= s.lr * gd[i]
			}
			continue
		}
		v, ok := s.velocity[param]
		if !ok {
			v = make([]float64, len(pd))
			s.velocity[param] = v
		}
		for i := range pd {
			v[i] = s.momentum*v[i] + gd[i]
			pd[i] -= s.lr * v[i]
		}
	}
}

// LearningRate returns the current learning rate.
func (s *SGD) LearningRate() float64 {
	return s.lr
}

// SetLearningRate updates the learning rate.
func (s *SGD) SetLearningRate(lr float64) {
	s.lr = lr
}
