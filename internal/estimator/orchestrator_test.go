package estimator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebar-ml/rebar/internal/estimator"
	"github.com/rebar-ml/rebar/internal/telemetry"
)

func TestTrainerStepUpdatesAllParameterGroups(t *testing.T) {
	est, err := estimator.New(estimator.Config{Dim: 3, Seed: 8}, directQuad(3))
	require.NoError(t, err)
	trainer := estimator.NewTrainer(est, estimator.TrainerConfig{LearningRate: 0.1})

	laBefore := append([]float64(nil), est.LogAlpha().Value().Data()...)
	ltBefore := append([]float64(nil), est.LogTemperature().Value().Data()...)

	_, err = trainer.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, trainer.StepCount())

	assert.NotEqual(t, laBefore, est.LogAlpha().Value().Data(), "log_alpha should move")
	assert.NotEqual(t, ltBefore, est.LogTemperature().Value().Data(), "log_temperature should move")
}

func TestTrainerRecordsTelemetry(t *testing.T) {
	est, err := estimator.New(estimator.Config{Dim: 2, Seed: 9}, directQuad(2))
	require.NoError(t, err)

	sink := telemetry.NewMemorySink()
	trainer := estimator.NewTrainer(est, estimator.TrainerConfig{LearningRate: 0.05, Sink: sink})

	require.NoError(t, trainer.Run(context.Background(), 5))

	records := sink.Snapshot()
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, trainer.RunID(), rec.RunID)
		assert.Equal(t, i+1, rec.Step)
		assert.Len(t, rec.Theta, 2)
		assert.Len(t, rec.Rebar, 2)
		assert.Len(t, rec.VarGradEta, 2)
	}
}

func TestTrainerRunHonorsContext(t *testing.T) {
	est, err := estimator.New(estimator.Config{Dim: 2, Seed: 10}, directQuad(2))
	require.NoError(t, err)
	trainer := estimator.NewTrainer(est, estimator.TrainerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = trainer.Run(ctx, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, trainer.StepCount())
}

// TestTrainingMovesThetaTowardOptimum runs the dim=10 toy scenario: targets
// t_j = (j+1)/12 sit below 1/2 for the first coordinates and above for the
// last, so the optimal hard configuration is 0 early and 1 late.
func TestTrainingMovesThetaTowardOptimum(t *testing.T) {
	const dim = 10

	est, err := estimator.New(estimator.Config{Dim: dim, Seed: 12}, directQuad(dim))
	require.NoError(t, err)

	sink := telemetry.NewMemorySink()
	trainer := estimator.NewTrainer(est, estimator.TrainerConfig{LearningRate: 0.1, Sink: sink})
	require.NoError(t, trainer.Run(context.Background(), 400))

	theta := est.Theta()
	assert.Less(t, theta[0], 0.4, "coordinate with target 1/12 should drift toward 0")
	assert.Greater(t, theta[dim-1], 0.6, "coordinate with target 10/12 should drift toward 1")

	// Loss should trend down across the run.
	records := sink.Snapshot()
	first, last := 0.0, 0.0
	for _, r := range records[:50] {
		first += r.MeanLoss
	}
	for _, r := range records[len(records)-50:] {
		last += r.MeanLoss
	}
	assert.Less(t, last, first, "average loss over the last 50 steps should undercut the first 50")
}

func TestTrainerSurrogateOptimizerRuns(t *testing.T) {
	eval, err := estimator.NewSurrogateEvaluator(estimator.QuadraticLoss(3), 3, 6, 14)
	require.NoError(t, err)
	est, err := estimator.New(estimator.Config{Dim: 3, Seed: 14}, eval)
	require.NoError(t, err)

	params := eval.Parameters()
	before := append([]float64(nil), params[0].Value().Data()...)

	trainer := estimator.NewTrainer(est, estimator.TrainerConfig{LearningRate: 0.05})
	_, err = trainer.Step()
	require.NoError(t, err)

	assert.NotEqual(t, before, params[0].Value().Data(), "surrogate weights should move")
}
