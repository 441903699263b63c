package estimator

import (
	"errors"
	"fmt"

	"github.com/rebar-ml/rebar/internal/autodiff"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// varianceGrads holds the gradients of the squared estimator with respect to
// the variance-reduction parameters.
type varianceGrads struct {
	eta         *tensor.RawTensor // [vars]
	temperature *tensor.RawTensor // [vars]
	surrogate   autodiff.Gradients
}

// varianceGradients differentiates rebar² through the recorded graph. Since
// the estimator is unbiased for any eta and temperature, E[rebar²] tracks its
// variance up to a constant, and these gradients descend the variance
// directly.
//
// The tape at this point contains the forward ops plus the recorded backward
// ops from the term constructions, so this pass yields exact second-order
// derivatives.
func (e *Estimator) varianceGradients(rebar *tensor.RawTensor) (*varianceGrads, error) {
	be := e.backend
	sq := be.Mul(rebar, rebar)
	grads := be.Tape().Backward(sq, be)

	etaGrad, err := grads.Grad(e.eta.Value())
	if err != nil {
		return nil, fmt.Errorf("estimator: eta is disconnected from the squared estimator: %w", err)
	}
	tempGrad, err := grads.Grad(e.logTemperature.Value())
	if err != nil {
		return nil, fmt.Errorf("estimator: log_temperature is disconnected from the squared estimator: %w", err)
	}

	// Backward sums over the batch axis; rescale to a batch mean.
	inner := be.Inner()
	scale := 1 / float64(e.batchSize)
	vg := &varianceGrads{
		eta:         inner.MulScalar(etaGrad, scale),
		temperature: inner.MulScalar(tempGrad, scale),
	}

	// Surrogate bias parameters are legitimately unreached here: the hidden
	// bias enters the estimate only through the constant ReLU mask, and the
	// output bias cancels between the two relaxed evaluations. An unreached
	// parameter simply takes no update this step.
	params := e.evaluator.Parameters()
	if len(params) > 0 {
		vg.surrogate = make(autodiff.Gradients, len(params))
		for _, p := range params {
			g, err := grads.Grad(p.Value())
			if errors.Is(err, autodiff.ErrNoGradient) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("estimator: surrogate parameter %q: %w", p.Name(), err)
			}
			vg.surrogate[p.Value()] = inner.MulScalar(g, scale)
		}
	}
	return vg, nil
}
