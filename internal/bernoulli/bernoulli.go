// Package bernoulli implements the analytic log-likelihood of a Bernoulli
// variable under its natural (logit) parameterization, and its closed-form
// derivative.
//
// With theta = sigmoid(logAlpha) and b in {0, 1}:
//
//	log p(b | logAlpha) = b*log(theta) + (1-b)*log(1-theta)
//	                    = b*(-softplus(-logAlpha)) + (1-b)*(-logAlpha - softplus(-logAlpha))
//
// The derivative w.r.t. logAlpha has the closed form
//
//	d log p / d logAlpha = b*sigmoid(-logAlpha) - (1-b)*(1 - sigmoid(-logAlpha))
//
// which the estimator uses in place of generic differentiation to keep the
// score-function term exact.
package bernoulli

import (
	"fmt"

	"github.com/rebar-ml/rebar/internal/stability"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// LogLikelihood returns log p(b | logAlpha) element-wise.
//
// b must contain only 0 and 1 values (assumed, not enforced). Shapes must be
// broadcast-compatible.
func LogLikelihood(backend tensor.Backend, b, logAlpha *tensor.RawTensor) *tensor.RawTensor {
	negLogAlpha := backend.MulScalar(logAlpha, -1)
	sp := stability.Softplus(backend, negLogAlpha)

	// b * (-softplus(-logAlpha))
	onBit := backend.Mul(b, backend.MulScalar(sp, -1))

	// (1-b) * (-logAlpha - softplus(-logAlpha))
	oneMinusB := backend.AddScalar(backend.MulScalar(b, -1), 1)
	offBit := backend.Mul(oneMinusB, backend.Sub(negLogAlpha, sp))

	return backend.Add(onBit, offBit)
}

// LogLikelihoodDerivative returns the exact analytic derivative of
// LogLikelihood with respect to logAlpha.
//
// Shapes of b and logAlpha must match exactly; a mismatch is a contract
// violation and fails immediately rather than broadcasting silently.
func LogLikelihoodDerivative(backend tensor.Backend, b, logAlpha *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !b.Shape().Equal(logAlpha.Shape()) {
		return nil, fmt.Errorf("bernoulli: shape mismatch: b %v vs logAlpha %v", b.Shape(), logAlpha.Shape())
	}

	// sigmoid(-logAlpha)
	sna := backend.Sigmoid(backend.MulScalar(logAlpha, -1))

	// b*sna - (1-b)*(1-sna)
	oneMinusB := backend.AddScalar(backend.MulScalar(b, -1), 1)
	oneMinusSna := backend.AddScalar(backend.MulScalar(sna, -1), 1)
	return backend.Sub(backend.Mul(b, sna), backend.Mul(oneMinusB, oneMinusSna)), nil
}
