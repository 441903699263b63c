package estimator_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebar-ml/rebar/internal/autodiff"
	"github.com/rebar-ml/rebar/internal/backend/cpu"
	"github.com/rebar-ml/rebar/internal/estimator"
	"github.com/rebar-ml/rebar/internal/tensor"
)

func directQuad(dim int) *estimator.DirectEvaluator {
	return &estimator.DirectEvaluator{Loss: estimator.QuadraticLoss(dim)}
}

func TestQuadraticLossValues(t *testing.T) {
	backend := cpu.New()
	loss := estimator.QuadraticLoss(3)

	// Targets for 3 coordinates are 1/5, 2/5, 3/5.
	x, err := tensor.FromSlice([]float64{0.2, 0.4, 0.6, 0, 0, 0}, tensor.Shape{2, 3})
	require.NoError(t, err)

	got := loss(backend, x)
	require.Equal(t, tensor.Shape{2}, got.Shape())
	assert.InDelta(t, 0, got.Data()[0], 1e-12, "at the targets the loss vanishes")

	want := 0.2*0.2 + 0.4*0.4 + 0.6*0.6
	assert.InDelta(t, want, got.Data()[1], 1e-12)
}

func TestNewValidation(t *testing.T) {
	_, err := estimator.New(estimator.Config{}, directQuad(2))
	assert.Error(t, err, "neither Dim nor LogAlpha")

	la := tensor.Zeros(tensor.Shape{1, 2})
	_, err = estimator.New(estimator.Config{Dim: 2, LogAlpha: la}, directQuad(2))
	assert.Error(t, err, "both Dim and LogAlpha")

	_, err = estimator.New(estimator.Config{Dim: 2}, nil)
	assert.Error(t, err, "nil evaluator")

	_, err = estimator.New(estimator.Config{Dim: 2, NSamples: -1}, directQuad(2))
	assert.Error(t, err, "negative NSamples")

	_, err = estimator.New(estimator.Config{LogAlpha: tensor.Zeros(tensor.Shape{4})}, directQuad(4))
	assert.Error(t, err, "LogAlpha must be a matrix")

	_, err = estimator.New(estimator.Config{Dim: 2, InitialTemperature: -0.5}, directQuad(2))
	assert.Error(t, err, "negative temperature")
}

func TestEstimateShapes(t *testing.T) {
	est, err := estimator.New(estimator.Config{Dim: 6, NSamples: 3, Seed: 1}, directQuad(6))
	require.NoError(t, err)

	e, err := est.Estimate()
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 6}, e.Rebar.Shape())
	assert.Equal(t, tensor.Shape{6}, e.RebarFlat.Shape())
	assert.Equal(t, tensor.Shape{1, 6}, e.Reinforce.Shape())
	assert.Equal(t, tensor.Shape{3}, e.FB.Shape(), "one loss value per sample row")
	assert.Equal(t, tensor.Shape{6}, e.VarGradEta.Shape())
	assert.Equal(t, tensor.Shape{6}, e.VarGradTemperature.Shape())
	assert.Equal(t, tensor.Shape{3, 6}, e.Draw.B.Shape())
	assert.Nil(t, e.SurrogateGrads, "direct variant has no surrogate")
}

func TestBatchedLogAlphaShapes(t *testing.T) {
	la, err := tensor.FromSlice([]float64{0, 0.5, -0.5, 1, -1, 0}, tensor.Shape{2, 3})
	require.NoError(t, err)

	est, err := estimator.New(estimator.Config{LogAlpha: la, Seed: 2}, directQuad(3))
	require.NoError(t, err)
	assert.Equal(t, 6, est.Dim())
	assert.Equal(t, 2, est.BatchSize())
	assert.Equal(t, 3, est.Vars())

	e, err := est.Estimate()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, e.Rebar.Shape())
	assert.Equal(t, tensor.Shape{3}, e.VarGradEta.Shape(), "eta is shared across the batch")
	assert.Equal(t, tensor.Shape{3}, e.VarGradTemperature.Shape())
}

func TestEstimateDeterministicBySeed(t *testing.T) {
	cfg := estimator.Config{Dim: 4, NSamples: 2, Seed: 11}

	a, err := estimator.New(cfg, directQuad(4))
	require.NoError(t, err)
	b, err := estimator.New(cfg, directQuad(4))
	require.NoError(t, err)

	ea, err := a.Estimate()
	require.NoError(t, err)
	eb, err := b.Estimate()
	require.NoError(t, err)
	assert.Equal(t, ea.RebarFlat.Data(), eb.RebarFlat.Data())
	assert.Equal(t, ea.VarGradEta.Data(), eb.VarGradEta.Data())
}

// TestRebarIsUnbiased checks the estimator mean against the closed-form
// gradient of the expected quadratic loss. At log_alpha = 0 (theta = 1/2)
// the true gradient per coordinate is theta*(1-theta)*(1-2t) = (1-2t)/4.
func TestRebarIsUnbiased(t *testing.T) {
	const (
		dim   = 10
		draws = 10000
	)
	est, err := estimator.New(estimator.Config{Dim: dim, Seed: 3}, directQuad(dim))
	require.NoError(t, err)

	rebarSum := make([]float64, dim)
	reinfSum := make([]float64, dim)
	for i := 0; i < draws; i++ {
		e, err := est.Estimate()
		require.NoError(t, err)
		for j, v := range e.RebarFlat.Data() {
			rebarSum[j] += v
		}
		for j, v := range e.Reinforce.Data() {
			reinfSum[j] += v
		}
	}

	for j := 0; j < dim; j++ {
		target := float64(j+1) / float64(dim+2)
		want := (1 - 2*target) / 4
		assert.InDelta(t, want, rebarSum[j]/draws, 0.04, "rebar coordinate %d", j)
		assert.InDelta(t, want, reinfSum[j]/draws, 0.06, "reinforce coordinate %d", j)
	}
}

// TestRebarVarianceBelowReinforce compares empirical estimator variances at
// the initial parameter point. The continuous control variate should soak up
// most of the score-function noise on a smooth objective.
func TestRebarVarianceBelowReinforce(t *testing.T) {
	const (
		dim   = 4
		draws = 3000
	)
	est, err := estimator.New(estimator.Config{Dim: dim, Seed: 4}, directQuad(dim))
	require.NoError(t, err)

	var rebarVar, reinfVar float64
	rebarSum := make([]float64, dim)
	rebarSumSq := make([]float64, dim)
	reinfSum := make([]float64, dim)
	reinfSumSq := make([]float64, dim)
	for i := 0; i < draws; i++ {
		e, err := est.Estimate()
		require.NoError(t, err)
		for j, v := range e.RebarFlat.Data() {
			rebarSum[j] += v
			rebarSumSq[j] += v * v
		}
		for j, v := range e.Reinforce.Data() {
			reinfSum[j] += v
			reinfSumSq[j] += v * v
		}
	}
	for j := 0; j < dim; j++ {
		rm := rebarSum[j] / draws
		fm := reinfSum[j] / draws
		rebarVar += rebarSumSq[j]/draws - rm*rm
		reinfVar += reinfSumSq[j]/draws - fm*fm
	}

	assert.Less(t, rebarVar, reinfVar,
		"mean REBAR variance %v should undercut REINFORCE variance %v", rebarVar/dim, reinfVar/dim)
}

// sumSquaredRebar rebuilds an estimator from scratch and returns the summed
// squared estimate of its first draw. Same seed, same draw, so this is a
// deterministic function of the variance parameters.
func sumSquaredRebar(t *testing.T, initialEta, initialTemperature float64) float64 {
	t.Helper()
	est, err := estimator.New(estimator.Config{
		Dim:                3,
		NSamples:           2,
		Seed:               17,
		InitialEta:         initialEta,
		InitialTemperature: initialTemperature,
	}, directQuad(3))
	require.NoError(t, err)

	e, err := est.Estimate()
	require.NoError(t, err)

	sum := 0.0
	for _, v := range e.RebarFlat.Data() {
		sum += v * v
	}
	return sum
}

// TestVarianceGradientsMatchFiniteDifference validates the second-order
// backward pass against central finite differences of the squared estimator
// on a fixed draw.
func TestVarianceGradientsMatchFiniteDifference(t *testing.T) {
	const h = 1e-5

	est, err := estimator.New(estimator.Config{Dim: 3, NSamples: 2, Seed: 17}, directQuad(3))
	require.NoError(t, err)
	e, err := est.Estimate()
	require.NoError(t, err)

	var gotEta float64
	for _, v := range e.VarGradEta.Data() {
		gotEta += v
	}
	fdEta := (sumSquaredRebar(t, 1+h, 0.5) - sumSquaredRebar(t, 1-h, 0.5)) / (2 * h)
	assert.InDelta(t, fdEta, gotEta, 1e-5*(1+math.Abs(fdEta)), "d(rebar²)/d(eta)")

	var gotTemp float64
	for _, v := range e.VarGradTemperature.Data() {
		gotTemp += v
	}
	// Perturbing log_temperature by ±h means scaling the temperature by
	// exp(±h).
	fdTemp := (sumSquaredRebar(t, 1, 0.5*math.Exp(h)) - sumSquaredRebar(t, 1, 0.5*math.Exp(-h))) / (2 * h)
	assert.InDelta(t, fdTemp, gotTemp, 1e-5*(1+math.Abs(fdTemp)), "d(rebar²)/d(log_temperature)")
}

func TestDisconnectedLossSurfacesError(t *testing.T) {
	detached := &estimator.DirectEvaluator{
		Loss: func(backend tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor {
			frozen := backend.Detach(x)
			return backend.SumDim(backend.Mul(frozen, frozen), 1, false)
		},
	}
	est, err := estimator.New(estimator.Config{Dim: 2, Seed: 5}, detached)
	require.NoError(t, err)

	_, err = est.Estimate()
	require.Error(t, err)
	assert.ErrorIs(t, err, autodiff.ErrNoGradient)
}

// TestSurrogateVariant checks a full surrogate-variant estimate. The bias
// vectors never reach the estimate (the hidden bias only feeds the constant
// ReLU mask, the output bias cancels between the two relaxed evaluations),
// so the variance pass yields gradients for the weight matrices only.
func TestSurrogateVariant(t *testing.T) {
	eval, err := estimator.NewSurrogateEvaluator(estimator.QuadraticLoss(4), 4, 8, 6)
	require.NoError(t, err)

	est, err := estimator.New(estimator.Config{Dim: 4, NSamples: 2, Seed: 6}, eval)
	require.NoError(t, err)

	e, err := est.Estimate()
	require.NoError(t, err)

	require.NotNil(t, e.SurrogateGrads)
	assert.Len(t, e.SurrogateGrads, 2, "both weight matrices, no bias entries")
	for _, p := range eval.Parameters() {
		g, err := e.SurrogateGrads.Grad(p.Value())
		if strings.HasSuffix(p.Name(), ".bias") {
			assert.ErrorIs(t, err, autodiff.ErrNoGradient, "parameter %s", p.Name())
			continue
		}
		require.NoError(t, err, "parameter %s", p.Name())
		assert.True(t, p.Value().Shape().Equal(g.Shape()), "gradient shape for %s", p.Name())
	}
	assert.Equal(t, tensor.Shape{1, 4}, e.Rebar.Shape())
}

func TestSurrogateEvaluatorValidation(t *testing.T) {
	_, err := estimator.NewSurrogateEvaluator(nil, 4, 8, 0)
	assert.Error(t, err, "nil loss")

	_, err = estimator.NewSurrogateEvaluator(estimator.QuadraticLoss(4), 4, 0, 0)
	assert.Error(t, err, "non-positive hidden size")
}
