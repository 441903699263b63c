package optim

import (
	"github.com/rebar-ml/rebar/internal/nn"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule (with momentum mu):
//
//	velocity = mu * velocity - lr * g
//	param = param + velocity
type SGD struct {
	params   []*nn.Parameter
	lr       float64
	momentum float64
	velocity map[*nn.Parameter][]float64
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64
	Momentum float64
}

// NewSGD creates a new SGD optimizer over the given parameters.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make(map[*nn.Parameter][]float64),
	}
}

// Step performs a single SGD update.
func (s *SGD) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := gradientFor(param, grads)
		if grad == nil {
			continue
		}

		gradData := grad.Data()
		paramData := param.Value().Data()

		if s.momentum == 0 {
			for i := range paramData {
				paramData[i] -= s.lr * gradData[i]
			}
			continue
		}

		vel, ok := s.velocity[param]
		if !ok {
			vel = make([]float64, len(paramData))
			s.velocity[param] = vel
		}
		for i := range paramData {
			vel[i] = s.momentum*vel[i] - s.lr*gradData[i]
			paramData[i] += vel[i]
		}
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 { return s.lr }

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) { s.lr = lr }
