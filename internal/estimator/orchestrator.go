package estimator

import (
	"context"

	"github.com/rebar-ml/rebar/internal/nn"
	"github.com/rebar-ml/rebar/internal/optim"
	"github.com/rebar-ml/rebar/internal/telemetry"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// TrainerConfig configures the optimization loop around an Estimator.
type TrainerConfig struct {
	// LearningRate drives the outer Adam update on log_alpha.
	// Defaults to 0.01.
	LearningRate float64

	// VarianceLearningRate drives the Adam updates on eta and
	// log_temperature. Defaults to LearningRate.
	VarianceLearningRate float64

	// SurrogateLearningRate drives the Adam update on surrogate parameters,
	// when the evaluator has any. Defaults to LearningRate.
	SurrogateLearningRate float64

	// Sink receives per-step statistics. Defaults to a no-op sink.
	Sink telemetry.Sink
}

// Trainer runs the three coupled optimizations of a REBAR setup: the model
// update on log_alpha fed by the estimate itself, the variance-controller
// update on eta and log_temperature fed by the squared-estimator gradients,
// and, for surrogate evaluators, the surrogate update.
type Trainer struct {
	est          *Estimator
	modelOpt     optim.Optimizer
	varianceOpt  optim.Optimizer
	surrogateOpt optim.Optimizer

	sink  telemetry.Sink
	runID string
	step  int
}

// NewTrainer wires optimizers and telemetry around an estimator.
func NewTrainer(est *Estimator, cfg TrainerConfig) *Trainer {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.VarianceLearningRate == 0 {
		cfg.VarianceLearningRate = cfg.LearningRate
	}
	if cfg.SurrogateLearningRate == 0 {
		cfg.SurrogateLearningRate = cfg.LearningRate
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NopSink{}
	}

	t := &Trainer{
		est: est,
		modelOpt: optim.NewAdam([]*nn.Parameter{est.LogAlpha()},
			optim.AdamConfig{LR: cfg.LearningRate}),
		varianceOpt: optim.NewAdam([]*nn.Parameter{est.Eta(), est.LogTemperature()},
			optim.AdamConfig{LR: cfg.VarianceLearningRate}),
		sink:  cfg.Sink,
		runID: telemetry.NewRunID(),
	}
	if params := est.evaluator.Parameters(); len(params) > 0 {
		t.surrogateOpt = optim.NewAdam(params, optim.AdamConfig{LR: cfg.SurrogateLearningRate})
	}
	return t
}

// Estimator returns the trained estimator.
func (t *Trainer) Estimator() *Estimator { return t.est }

// RunID identifies this trainer's telemetry stream.
func (t *Trainer) RunID() string { return t.runID }

// StepCount returns the number of completed steps.
func (t *Trainer) StepCount() int { return t.step }

// Step evaluates the estimator once and applies all parameter updates.
// The REBAR estimate itself is the gradient for log_alpha; the estimate was
// produced before any update, so all three updates see a consistent state.
func (t *Trainer) Step() (*Estimate, error) {
	est, err := t.est.Estimate()
	if err != nil {
		return nil, err
	}

	t.modelOpt.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		t.est.LogAlpha().Value(): est.RebarFlat,
	})
	t.varianceOpt.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		t.est.Eta().Value():            est.VarGradEta,
		t.est.LogTemperature().Value(): est.VarGradTemperature,
	})
	if t.surrogateOpt != nil && est.SurrogateGrads != nil {
		t.surrogateOpt.Step(est.SurrogateGrads)
	}

	t.step++
	t.sink.Record(t.stats(est))
	return est, nil
}

// Run performs n steps, stopping early if the context is canceled.
func (t *Trainer) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer) stats(est *Estimate) telemetry.Stats {
	return telemetry.Stats{
		RunID:              t.runID,
		Step:               t.step,
		MeanLoss:           meanOf(est.FB.Data()),
		Theta:              t.est.Theta(),
		Temperature:        t.est.Temperature(),
		Eta:                copyOf(t.est.Eta().Value().Data()),
		Rebar:              copyOf(est.RebarFlat.Data()),
		Reinforce:          copyOf(est.Reinforce.Data()),
		VarGradEta:         copyOf(est.VarGradEta.Data()),
		VarGradTemperature: copyOf(est.VarGradTemperature.Data()),
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func copyOf(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
