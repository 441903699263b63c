// Package telemetry records per-step training statistics. Sinks are
// pluggable: keep them in memory for tests and diagnostics, stream them as
// structured logs, or append them as JSON lines for offline analysis.
package telemetry

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Stats is one step's worth of observable training state. Slices are owned
// by the Stats value; producers copy before populating.
type Stats struct {
	RunID string `json:"run_id"`
	Step  int    `json:"step"`

	// MeanLoss is the average hard-sample loss, mean(f_b).
	MeanLoss float64 `json:"mean_loss"`

	// Theta is sigmoid(log_alpha), the current Bernoulli probabilities.
	Theta []float64 `json:"theta"`

	// Temperature and Eta are the current variance-reduction parameters.
	Temperature []float64 `json:"temperature"`
	Eta         []float64 `json:"eta"`

	// Rebar and Reinforce are the flattened gradient estimates.
	Rebar     []float64 `json:"rebar"`
	Reinforce []float64 `json:"reinforce"`

	// VarGradEta and VarGradTemperature are the squared-estimator gradients
	// driving the variance controller.
	VarGradEta         []float64 `json:"var_grad_eta"`
	VarGradTemperature []float64 `json:"var_grad_temperature"`
}

// Sink consumes per-step statistics.
type Sink interface {
	Record(stats Stats)
}

// NewRunID returns a fresh identifier tying a run's records together.
func NewRunID() string {
	return uuid.New().String()
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Record(Stats) {}

// MemorySink retains all records in memory. Safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	records []Stats
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends one step's statistics.
func (m *MemorySink) Record(stats Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, stats)
}

// Snapshot returns a copy of all records so far.
func (m *MemorySink) Snapshot() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Stats, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of records.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// SlogSink logs a compact summary of every interval-th step.
type SlogSink struct {
	logger   *slog.Logger
	interval int
}

// NewSlogSink creates a sink logging every interval-th step (interval <= 1
// logs every step).
func NewSlogSink(logger *slog.Logger, interval int) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	if interval < 1 {
		interval = 1
	}
	return &SlogSink{logger: logger, interval: interval}
}

// Record logs the step summary.
func (s *SlogSink) Record(stats Stats) {
	if stats.Step%s.interval != 0 {
		return
	}
	s.logger.Info("step",
		slog.String("run_id", stats.RunID),
		slog.Int("step", stats.Step),
		slog.Float64("mean_loss", stats.MeanLoss),
		slog.Any("theta", stats.Theta),
		slog.Any("temperature", stats.Temperature),
		slog.Any("eta", stats.Eta),
	)
}

// JSONLSink appends one JSON object per record to a writer. Safe for
// concurrent use.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewJSONLSink creates a sink writing JSON lines to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w)}
}

// Record encodes one step's statistics. The first encoding error is retained
// and later records are dropped.
func (j *JSONLSink) Record(stats Stats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(stats)
}

// Err returns the first encoding error, if any.
func (j *JSONLSink) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// MultiSink fans records out to several sinks.
type MultiSink []Sink

// Record forwards to every sink.
func (m MultiSink) Record(stats Stats) {
	for _, s := range m {
		s.Record(stats)
	}
}
