// Copyright 2025 The REBAR ML Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides the public API for automatic differentiation.
//
// The autodiff backend decorates any tensor backend with gradient recording.
// Backward passes are themselves built from recorded operations, so
// differentiating through a gradient (second-order derivatives) works by
// passing CreateGraph to the first backward.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := backend.Mul(x, x)
//	grads := backend.Tape().Backward(y, backend)
//	dx, err := grads.Grad(x)
package autodiff

import (
	"github.com/rebar-ml/rebar/internal/autodiff"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// Backend wraps a tensor backend with gradient recording.
type Backend = autodiff.Backend

// GradientTape records operations for reverse-mode differentiation.
type GradientTape = autodiff.GradientTape

// Gradients maps tensors to their gradients after a backward pass.
type Gradients = autodiff.Gradients

// ErrNoGradient reports that a tensor did not participate in the
// differentiated graph.
var ErrNoGradient = autodiff.ErrNoGradient

// BackwardOption configures a backward pass.
type BackwardOption = autodiff.BackwardOption

// New creates an autodiff backend wrapping inner.
func New(inner tensor.Backend) *Backend {
	return autodiff.New(inner)
}

// CreateGraph keeps recording during the backward pass, making the computed
// gradients differentiable in turn.
func CreateGraph() BackwardOption {
	return autodiff.CreateGraph()
}
