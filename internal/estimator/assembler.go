package estimator

import (
	"fmt"

	"github.com/rebar-ml/rebar/internal/autodiff"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// stepParts collects the intermediate tensors one term1 construction needs.
// Shapes: fB and fZTilde are [rows, 1] columns, logP and dLogP are
// [rows, vars], etaRow is [1, vars].
type stepParts struct {
	estimator *Estimator
	fB        *tensor.RawTensor
	fZTilde   *tensor.RawTensor
	logP      *tensor.RawTensor
	dLogP     *tensor.RawTensor
	etaRow    *tensor.RawTensor
}

// gradientAssembler builds the score-function term of the estimator,
// averaged over the sample axis to [batch_size, vars].
type gradientAssembler interface {
	term1(backend *autodiff.Backend, parts *stepParts) (*tensor.RawTensor, error)
}

// directAssembler uses the analytic likelihood derivative:
//
//	term1 = (f(b) - eta*f(sig(z̃))) * d[log p(b)]/d[log_alpha]
//
// Nothing here is detached, so the variance pass sees eta and the
// temperature dependence of f(sig(z̃)) through this term as well.
type directAssembler struct{}

func (directAssembler) term1(backend *autodiff.Backend, parts *stepParts) (*tensor.RawTensor, error) {
	e := parts.estimator
	weighted := backend.Sub(parts.fB, backend.Mul(parts.etaRow, parts.fZTilde))
	perRow := backend.Mul(weighted, parts.dLogP)
	return e.meanOverSamples(backend, perRow), nil
}

// surrogateAssembler differentiates the log-likelihood-weighted objective on
// the tape instead of using the analytic derivative:
//
//	term1 = d[mean((sg(f(b)) - sg(eta*f(sig(z̃)))) * log p(b))]/d[log_alpha]
//
// The loss factors are detached so they act as fixed regression weights;
// only the likelihood carries gradient. The backward runs with the graph
// kept, so the result stays differentiable for the variance pass.
type surrogateAssembler struct{}

func (surrogateAssembler) term1(backend *autodiff.Backend, parts *stepParts) (*tensor.RawTensor, error) {
	e := parts.estimator
	weight := backend.Sub(backend.Detach(parts.fB), backend.Detach(backend.Mul(parts.etaRow, parts.fZTilde)))
	objective := e.meanOverSamples(backend, backend.Mul(weight, parts.logP))
	grads := backend.Tape().Backward(objective, backend, autodiff.CreateGraph())
	flat, err := grads.Grad(e.logAlpha.Value())
	if err != nil {
		return nil, fmt.Errorf("estimator: likelihood is disconnected from log_alpha: %w", err)
	}
	return backend.Reshape(flat, tensor.Shape{e.batchSize, e.vars}), nil
}
