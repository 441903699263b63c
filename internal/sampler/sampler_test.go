package sampler_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebar-ml/rebar/internal/autodiff"
	"github.com/rebar-ml/rebar/internal/backend/cpu"
	"github.com/rebar-ml/rebar/internal/sampler"
	"github.com/rebar-ml/rebar/internal/tensor"
)

func TestHardSampleFrequencies(t *testing.T) {
	backend := cpu.New()
	const n = 10000

	logAlpha, err := tensor.FromSlice([]float64{-1, 0, 1}, tensor.Shape{1, 3})
	require.NoError(t, err)

	s := sampler.New(42, n)
	draw := s.Sample(backend, logAlpha)
	require.Equal(t, tensor.Shape{n, 3}, draw.B.Shape())

	counts := make([]float64, 3)
	for i, v := range draw.B.Data() {
		require.True(t, v == 0 || v == 1, "hard sample must be binary")
		counts[i%3] += v
	}
	for j, la := range logAlpha.Data() {
		theta := 1 / (1 + math.Exp(-la))
		assert.InDelta(t, theta, counts[j]/n, 0.02, "coordinate %d", j)
	}
}

func TestConditionalSampleSignMatchesExactly(t *testing.T) {
	backend := cpu.New()

	logAlpha, err := tensor.FromSlice([]float64{-3, -0.5, 0, 0.5, 3}, tensor.Shape{1, 5})
	require.NoError(t, err)

	// Many seeds, zero tolerance: every z̃ must land strictly on b's side.
	for seed := int64(0); seed < 20; seed++ {
		draw := sampler.New(seed, 500).Sample(backend, logAlpha)
		b := draw.B.Data()
		zTilde := draw.ZTilde.Data()
		for i := range b {
			if b[i] == 1 {
				require.Greater(t, zTilde[i], 0.0, "seed %d index %d", seed, i)
			} else {
				require.LessOrEqual(t, zTilde[i], 0.0, "seed %d index %d", seed, i)
			}
		}
	}
}

func TestHardSampleIsSignOfZ(t *testing.T) {
	backend := cpu.New()

	logAlpha := tensor.Zeros(tensor.Shape{1, 4})
	draw := sampler.New(7, 1000).Sample(backend, logAlpha)

	z := draw.Z.Data()
	b := draw.B.Data()
	for i := range z {
		want := 0.0
		if z[i] > 0 {
			want = 1
		}
		require.Equal(t, want, b[i], "index %d", i)
	}
}

func TestSamplerDeterministicBySeed(t *testing.T) {
	backend := cpu.New()
	logAlpha, err := tensor.FromSlice([]float64{0.3, -0.7}, tensor.Shape{1, 2})
	require.NoError(t, err)

	a := sampler.New(99, 50).Sample(backend, logAlpha)
	b := sampler.New(99, 50).Sample(backend, logAlpha)
	assert.Equal(t, a.Z.Data(), b.Z.Data())
	assert.Equal(t, a.ZTilde.Data(), b.ZTilde.Data())

	c := sampler.New(100, 50).Sample(backend, logAlpha)
	assert.NotEqual(t, a.Z.Data(), c.Z.Data())
}

func TestGradientsFlowThroughBothRelaxations(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	logAlpha, err := tensor.FromSlice([]float64{0.2, -0.4}, tensor.Shape{1, 2})
	require.NoError(t, err)

	draw := sampler.New(5, 10).Sample(backend, logAlpha)

	zGrads := tape.Backward(backend.Mean(draw.Z), backend)
	_, err = zGrads.Grad(logAlpha)
	assert.NoError(t, err, "z must be differentiable in logAlpha")

	tGrads := tape.Backward(backend.Mean(draw.ZTilde), backend)
	_, err = tGrads.Grad(logAlpha)
	assert.NoError(t, err, "z̃ must be differentiable in logAlpha")

	bGrads := tape.Backward(backend.Mean(draw.B), backend)
	_, err = bGrads.Grad(logAlpha)
	assert.ErrorIs(t, err, autodiff.ErrNoGradient, "the hard sample is gradient-blocked")
}

func TestConditionalMarginalMatchesBernoulli(t *testing.T) {
	backend := cpu.New()
	const n = 20000

	logAlpha, err := tensor.FromSlice([]float64{0.8}, tensor.Shape{1, 1})
	require.NoError(t, err)

	// Marginalizing z̃ over b recovers the unconditional logistic location:
	// E[sigmoid(z̃)] should match E[sigmoid(z)] closely.
	draw := sampler.New(13, n).Sample(backend, logAlpha)

	meanSig := func(xs []float64) float64 {
		sum := 0.0
		for _, x := range xs {
			sum += 1 / (1 + math.Exp(-x))
		}
		return sum / float64(len(xs))
	}
	assert.InDelta(t, meanSig(draw.Z.Data()), meanSig(draw.ZTilde.Data()), 0.02)
}
