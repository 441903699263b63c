// Copyright 2025 The REBAR ML Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package estimator provides the public API for the REBAR gradient
// estimator.
//
// Example:
//
//	loss := estimator.QuadraticLoss(10)
//	est, err := estimator.New(estimator.Config{Dim: 10}, &estimator.DirectEvaluator{Loss: loss})
//	trainer := estimator.NewTrainer(est, estimator.TrainerConfig{LearningRate: 0.1})
//	err = trainer.Run(ctx, 1000)
package estimator

import (
	"github.com/rebar-ml/rebar/internal/estimator"
)

// Config configures an Estimator.
type Config = estimator.Config

// Estimator evaluates the REBAR gradient estimate and its variance
// gradients.
type Estimator = estimator.Estimator

// Estimate is the result of one evaluation of the estimator graph.
type Estimate = estimator.Estimate

// LossFunc evaluates the objective on a [rows, vars] input, one value per
// row.
type LossFunc = estimator.LossFunc

// LossEvaluator produces the hard and relaxed loss evaluations.
type LossEvaluator = estimator.LossEvaluator

// DirectEvaluator applies the objective directly to relaxed inputs.
type DirectEvaluator = estimator.DirectEvaluator

// SurrogateEvaluator approximates relaxed evaluations with a trained
// network.
type SurrogateEvaluator = estimator.SurrogateEvaluator

// Trainer runs the coupled model, variance-controller, and surrogate
// updates.
type Trainer = estimator.Trainer

// TrainerConfig configures a Trainer.
type TrainerConfig = estimator.TrainerConfig

// New creates an Estimator.
func New(config Config, evaluator LossEvaluator) (*Estimator, error) {
	return estimator.New(config, evaluator)
}

// NewSurrogateEvaluator builds a surrogate evaluator around loss.
func NewSurrogateEvaluator(loss LossFunc, vars, hiddenSize int, seed int64) (*SurrogateEvaluator, error) {
	return estimator.NewSurrogateEvaluator(loss, vars, hiddenSize, seed)
}

// NewTrainer wires optimizers and telemetry around an estimator.
func NewTrainer(est *Estimator, config TrainerConfig) *Trainer {
	return estimator.NewTrainer(est, config)
}

// QuadraticLoss returns the built-in toy objective over vars coordinates.
func QuadraticLoss(vars int) LossFunc {
	return estimator.QuadraticLoss(vars)
}
