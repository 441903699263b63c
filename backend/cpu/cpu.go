// Copyright 2025 The REBAR ML Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the public API for the pure-Go CPU backend.
package cpu

import (
	"github.com/rebar-ml/rebar/internal/backend/cpu"
)

// Backend is the CPU implementation of tensor operations.
type Backend = cpu.Backend

// New creates a CPU backend.
func New() *Backend {
	return cpu.New()
}
