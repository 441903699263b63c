// Package estimator implements the REBAR gradient estimator: an unbiased,
// low-variance estimator of d/d(log_alpha) E[loss(b)] for Bernoulli latent
// variables b, together with the secondary controller that tunes the
// estimator's own variance-reduction parameters.
//
// One Estimate() call evaluates the whole dependency graph on a fresh tape:
//
//	sample (b, z, z̃) → relaxed loss evaluations → likelihood terms →
//	estimator assembly → squared-estimator variance gradients
//
// The estimator is assembled from a REINFORCE-style score-function term,
// corrected by a control variate built on the coupled continuous
// relaxations:
//
//	term1 = (f(b) - eta*f(sig(z̃))) * d[log p(b)]/d[log_alpha]
//	term2 = d[mean(f(sig(z)) - f(sig(z̃)))]/d[log_alpha]   (pathwise, via the tape)
//	rebar = term1 + eta*term2
//
// rebar is unbiased for any finite eta and any temperature > 0; those
// parameters only move its variance, which is why they can be trained
// against the squared estimator alone.
package estimator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rebar-ml/rebar/internal/autodiff"
	"github.com/rebar-ml/rebar/internal/backend/cpu"
	"github.com/rebar-ml/rebar/internal/bernoulli"
	"github.com/rebar-ml/rebar/internal/nn"
	"github.com/rebar-ml/rebar/internal/sampler"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// Config configures an Estimator.
type Config struct {
	// Dim is the number of latent coordinates. Exactly one of Dim and
	// LogAlpha must be set.
	Dim int

	// LogAlpha optionally supplies the initial natural parameter as a
	// [batch_size, vars] matrix. The estimator owns (and mutates) its copy.
	LogAlpha *tensor.RawTensor

	// NSamples is the number of Monte-Carlo draws per step. Defaults to 1.
	NSamples int

	// Seed drives all random draws. Steps are deterministic given a seed.
	Seed int64

	// InitialTemperature is the starting relaxation temperature.
	// Defaults to 0.5.
	InitialTemperature float64

	// InitialEta is the starting control-variate weight. Defaults to 1.
	InitialEta float64
}

// Estimate is the result of one evaluation of the estimator graph. All
// tensors are recomputed per call and carry no identity across steps.
type Estimate struct {
	// Rebar is the REBAR gradient estimate, shape [batch_size, vars].
	Rebar *tensor.RawTensor
	// RebarFlat is the same estimate flattened to [dim], aligned with the
	// log_alpha parameter for the outer optimizer.
	RebarFlat *tensor.RawTensor
	// Reinforce is the plain score-function estimate, diagnostics only.
	Reinforce *tensor.RawTensor

	// FB, FZ, FZTilde are the per-row loss evaluations.
	FB, FZ, FZTilde *tensor.RawTensor

	// VarGradEta and VarGradTemperature are d(rebar²)/d(eta) and
	// d(rebar²)/d(log_temperature), averaged over the batch, shape [vars].
	VarGradEta         *tensor.RawTensor
	VarGradTemperature *tensor.RawTensor

	// SurrogateGrads holds gradients for the surrogate parameters reached
	// by the variance pass; nil for the direct variant. Parameters the pass
	// cannot reach (the bias vectors) have no entry and take no update.
	SurrogateGrads autodiff.Gradients

	// Draw is the sample behind this estimate.
	Draw *sampler.Draw
}

// Estimator owns the three variance-critical parameter vectors and evaluates
// the REBAR graph. It is not safe for concurrent use; replicate it instead
// (see the diagnostics package).
type Estimator struct {
	backend   *autodiff.Backend
	sampler   *sampler.Sampler
	evaluator LossEvaluator
	assembler gradientAssembler

	logAlpha       *nn.Parameter // [dim], trained by the outer optimizer
	logTemperature *nn.Parameter // [vars], trained by the variance controller
	eta            *nn.Parameter // [vars], trained by the variance controller

	dim       int
	batchSize int
	vars      int
	nSamples  int
}

// New creates an Estimator for the given configuration and loss evaluator.
func New(cfg Config, evaluator LossEvaluator) (*Estimator, error) {
	if (cfg.Dim == 0) == (cfg.LogAlpha == nil) {
		return nil, fmt.Errorf("estimator: exactly one of Dim and LogAlpha must be set")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("estimator: evaluator must not be nil")
	}
	if cfg.NSamples == 0 {
		cfg.NSamples = 1
	}
	if cfg.NSamples < 0 {
		return nil, fmt.Errorf("estimator: NSamples must be positive, got %d", cfg.NSamples)
	}
	if cfg.InitialTemperature == 0 {
		cfg.InitialTemperature = 0.5
	}
	if cfg.InitialTemperature < 0 {
		return nil, fmt.Errorf("estimator: InitialTemperature must be positive, got %v", cfg.InitialTemperature)
	}
	if cfg.InitialEta == 0 {
		cfg.InitialEta = 1
	}

	var (
		logAlpha  *tensor.RawTensor
		batchSize int
		dim       int
	)
	if cfg.LogAlpha != nil {
		shape := cfg.LogAlpha.Shape()
		if len(shape) != 2 {
			return nil, fmt.Errorf("estimator: LogAlpha must have shape [batch_size, vars], got %v", shape)
		}
		batchSize = shape[0]
		dim = shape.NumElements()
		flat, err := tensor.FromSlice(cfg.LogAlpha.Data(), tensor.Shape{dim})
		if err != nil {
			return nil, fmt.Errorf("estimator: %w", err)
		}
		logAlpha = flat
	} else {
		batchSize = 1
		dim = cfg.Dim
		logAlpha = tensor.Zeros(tensor.Shape{dim})
	}
	vars := dim / batchSize

	e := &Estimator{
		backend:        autodiff.New(cpu.New()),
		sampler:        sampler.New(cfg.Seed, cfg.NSamples),
		evaluator:      evaluator,
		logAlpha:       nn.NewParameter("log_alpha", logAlpha),
		logTemperature: nn.NewParameter("log_temperature", tensor.Full(tensor.Shape{vars}, math.Log(cfg.InitialTemperature))),
		eta:            nn.NewParameter("eta", tensor.Full(tensor.Shape{vars}, cfg.InitialEta)),
		dim:            dim,
		batchSize:      batchSize,
		vars:           vars,
		nSamples:       cfg.NSamples,
	}
	e.assembler = evaluator.assembler()
	return e, nil
}

// LogAlpha returns the natural-parameter vector, shape [dim].
func (e *Estimator) LogAlpha() *nn.Parameter { return e.logAlpha }

// LogTemperature returns the log-temperature vector, shape [vars].
func (e *Estimator) LogTemperature() *nn.Parameter { return e.logTemperature }

// Eta returns the control-variate weight vector, shape [vars].
func (e *Estimator) Eta() *nn.Parameter { return e.eta }

// Theta returns sigmoid(log_alpha), the Bernoulli success probabilities.
func (e *Estimator) Theta() []float64 {
	out := make([]float64, e.dim)
	for i, v := range e.logAlpha.Value().Data() {
		out[i] = 1 / (1 + math.Exp(-v))
	}
	return out
}

// Temperature returns exp(log_temperature) per coordinate.
func (e *Estimator) Temperature() []float64 {
	out := make([]float64, e.vars)
	for i, v := range e.logTemperature.Value().Data() {
		out[i] = math.Exp(v)
	}
	return out
}

// Dim returns the number of latent coordinates.
func (e *Estimator) Dim() int { return e.dim }

// BatchSize returns the number of batch rows.
func (e *Estimator) BatchSize() int { return e.batchSize }

// Vars returns the number of coordinates per batch row.
func (e *Estimator) Vars() int { return e.vars }

// Estimate draws a fresh coupled sample and evaluates the full estimator
// graph, including the variance gradients. The previous step's tape is
// discarded first.
func (e *Estimator) Estimate() (*Estimate, error) {
	be := e.backend
	tape := be.Tape()
	tape.Clear()
	tape.StartRecording()
	defer tape.StopRecording()

	// Reparameterized sample. logAlphaRow broadcasts over samples.
	logAlphaRow := be.Reshape(e.logAlpha.Value(), tensor.Shape{1, e.dim})
	draw := e.sampler.Sample(be, logAlphaRow)

	// Temperature, tiled from the shared [vars] parameter to [1, dim] so
	// gradients accumulate back through the expand ops.
	ltRow := be.Reshape(e.logTemperature.Value(), tensor.Shape{1, e.vars})
	ltTiled := be.Reshape(be.Expand(ltRow, tensor.Shape{e.batchSize, e.vars}), tensor.Shape{1, e.dim})
	temperature := be.Exp(ltTiled)

	// Temperature-sharpened relaxations of both continuous samples.
	sigZ := be.Sigmoid(be.Add(be.Div(draw.Z, temperature), logAlphaRow))
	sigZTilde := be.Sigmoid(be.Add(be.Div(draw.ZTilde, temperature), logAlphaRow))

	// Loss evaluations, one scalar per row of [rows, vars].
	rows := e.nSamples * e.batchSize
	rowShape := tensor.Shape{rows, e.vars}
	fB, fZ, fZTilde := e.evaluator.Evaluate(be, be.Reshape(draw.B, rowShape), be.Reshape(sigZ, rowShape), be.Reshape(sigZTilde, rowShape))

	// Likelihood terms. The derivative contract wants exact shapes, so
	// log_alpha is expanded to the sample shape explicitly.
	logAlphaFull := be.Expand(logAlphaRow, draw.B.Shape())
	logP := bernoulli.LogLikelihood(be, draw.B, logAlphaFull)
	dLogP, err := bernoulli.LogLikelihoodDerivative(be, draw.B, logAlphaFull)
	if err != nil {
		return nil, err
	}

	etaRow := be.Reshape(e.eta.Value(), tensor.Shape{1, e.vars})

	parts := &stepParts{
		estimator: e,
		fB:        be.Reshape(fB, tensor.Shape{rows, 1}),
		fZTilde:   be.Reshape(fZTilde, tensor.Shape{rows, 1}),
		logP:      be.Reshape(logP, rowShape),
		dLogP:     be.Reshape(dLogP, rowShape),
		etaRow:    etaRow,
	}

	// term1: score-function term with the control-variate correction,
	// averaged over the sample axis to [batch_size, vars].
	term1, err := e.assembler.term1(be, parts)
	if err != nil {
		return nil, err
	}

	// term2: pathwise derivative of the relaxation gap, via the tape with
	// the gradient graph kept for the variance pass.
	gap := be.Mean(be.Sub(fZ, fZTilde))
	gapGrads := tape.Backward(gap, be, autodiff.CreateGraph())
	term2Flat, err := gapGrads.Grad(e.logAlpha.Value())
	if err != nil {
		return nil, fmt.Errorf("estimator: relaxation path is disconnected from log_alpha: %w", err)
	}
	term2 := be.Reshape(term2Flat, tensor.Shape{e.batchSize, e.vars})

	rebar := be.Add(term1, be.Mul(etaRow, term2))
	reinforce := e.meanOverSamples(be, be.Mul(parts.fB, parts.dLogP))

	varGrads, err := e.varianceGradients(rebar)
	if err != nil {
		return nil, err
	}

	return &Estimate{
		Rebar:              rebar,
		RebarFlat:          be.Reshape(rebar, tensor.Shape{e.dim}),
		Reinforce:          reinforce,
		FB:                 fB,
		FZ:                 fZ,
		FZTilde:            fZTilde,
		VarGradEta:         varGrads.eta,
		VarGradTemperature: varGrads.temperature,
		SurrogateGrads:     varGrads.surrogate,
		Draw:               draw,
	}, nil
}

// meanOverSamples reduces [rows, vars] to [batch_size, vars] by averaging
// over the Monte-Carlo sample axis.
func (e *Estimator) meanOverSamples(be tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor {
	stacked := be.Reshape(x, tensor.Shape{e.nSamples, e.batchSize, e.vars})
	return be.MeanDim(stacked, 0, false)
}

// newRNG derives an RNG for surrogate initialization from a seed.
func newRNG(seed int64) *rand.Rand {
	//nolint:gosec // reproducible initialization, not security-critical
	return rand.New(rand.NewSource(seed))
}
