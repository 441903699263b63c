// Package optim implements gradient-based parameter update rules.
//
// Optimizers consume a gradient map (parameter tensor pointer to gradient
// tensor) and update parameters in place. The map shape matches what the
// autodiff backward pass produces, so applying an update is:
//
//	grads := backend.Tape().Backward(loss, backend)
//	optimizer.Step(grads)
//
// Callers may also hand-build the map, which is how the estimator feeds the
// REBAR tensor directly as the gradient for log_alpha.
package optim

import (
	"github.com/rebar-ml/rebar/internal/nn"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// Optimizer is the base interface for all update rules.
type Optimizer interface {
	// Step applies one update to all managed parameters. Parameters absent
	// from the map are skipped (they did not participate in this step's
	// graph).
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LR returns the current learning rate.
	LR() float64

	// SetLR updates the learning rate (for scheduling).
	SetLR(lr float64)
}

// gradientFor retrieves the gradient for a parameter, or nil.
func gradientFor(param *nn.Parameter, grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Value()]
}
