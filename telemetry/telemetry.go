// Copyright 2025 The REBAR ML Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package telemetry provides the public API for training statistics sinks.
package telemetry

import (
	"io"
	"log/slog"

	"github.com/rebar-ml/rebar/internal/telemetry"
)

// Stats is one step's worth of observable training state.
type Stats = telemetry.Stats

// Sink consumes per-step statistics.
type Sink = telemetry.Sink

// NopSink discards everything.
type NopSink = telemetry.NopSink

// MemorySink retains all records in memory.
type MemorySink = telemetry.MemorySink

// SlogSink logs a summary of every interval-th step.
type SlogSink = telemetry.SlogSink

// JSONLSink appends one JSON object per record to a writer.
type JSONLSink = telemetry.JSONLSink

// MultiSink fans records out to several sinks.
type MultiSink = telemetry.MultiSink

// NewRunID returns a fresh identifier tying a run's records together.
func NewRunID() string { return telemetry.NewRunID() }

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink { return telemetry.NewMemorySink() }

// NewSlogSink creates a sink logging every interval-th step.
func NewSlogSink(logger *slog.Logger, interval int) *SlogSink {
	return telemetry.NewSlogSink(logger, interval)
}

// NewJSONLSink creates a sink writing JSON lines to w.
func NewJSONLSink(w io.Writer) *JSONLSink { return telemetry.NewJSONLSink(w) }
