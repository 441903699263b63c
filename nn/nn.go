// Copyright 2025 The REBAR ML Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for trainable parameters and the small
// networks used by the surrogate estimator variant.
package nn

import (
	"math/rand"

	"github.com/rebar-ml/rebar/internal/nn"
)

// Parameter is a named trainable tensor. Its value pointer doubles as the
// key into gradient maps.
type Parameter = nn.Parameter

// NewParameter wraps a tensor as a trainable parameter.
var NewParameter = nn.NewParameter

// Linear is a fully connected layer.
type Linear = nn.Linear

// NewLinear creates a linear layer with Xavier-uniform initialization.
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return nn.NewLinear(name, inFeatures, outFeatures, rng)
}

// Surrogate is a one-hidden-layer ReLU network producing one value per row.
type Surrogate = nn.Surrogate

// NewSurrogate creates a surrogate network.
func NewSurrogate(vars, hiddenSize int, rng *rand.Rand) (*Surrogate, error) {
	return nn.NewSurrogate(vars, hiddenSize, rng)
}
