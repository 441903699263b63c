// Copyright 2025 The REBAR ML Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor values and backends.
//
// Tensors are dense float64 arrays with a shape. Backends implement the
// numeric operations; composing a backend with autodiff.New gives the same
// operations with gradient recording.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3})
//	y := tensor.Ones(tensor.Shape{2, 3})
//	z := backend.Add(x, y)
package tensor

import (
	"github.com/rebar-ml/rebar/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3} represents a 2×3 matrix.
type Shape = tensor.Shape

// RawTensor is a dense float64 tensor.
type RawTensor = tensor.RawTensor

// Backend is the interface for numeric tensor operations.
type Backend = tensor.Backend

// NewRaw creates a zero-initialized tensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	return tensor.NewRaw(shape)
}

// FromSlice creates a tensor from a copy of data.
func FromSlice(data []float64, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape) *RawTensor { return tensor.Zeros(shape) }

// Ones creates a one-filled tensor.
func Ones(shape Shape) *RawTensor { return tensor.Ones(shape) }

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *RawTensor { return tensor.Full(shape, value) }

// Scalar creates a rank-0 tensor holding value.
func Scalar(value float64) *RawTensor { return tensor.Scalar(value) }

// BroadcastShapes returns the broadcast result shape of a and b following
// NumPy broadcasting rules, plus a flag indicating whether any broadcasting
// is needed.
func BroadcastShapes(a, b Shape) (Shape, bool, error) { return tensor.BroadcastShapes(a, b) }
