package autodiff

import (
	"github.com/rebar-ml/rebar/internal/autodiff/ops"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode automatic
// differentiation.
type GradientTape struct {
	operations []ops.Operation // Recorded operations (in execution order)
	recording  bool            // Whether the tape is currently recording
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() { t.recording = true }

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() { t.recording = false }

// IsRecording returns true if the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool { return t.recording }

// Record adds an operation to the tape if recording is enabled.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear resets the tape, removing all recorded operations.
// Recording state is preserved.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int { return len(t.operations) }

// Backward computes gradients of root with respect to every tensor on the
// tape by walking the recorded operations in reverse.
//
// The root may be any tensor produced while recording, not only the last
// one; operations downstream of it contribute nothing and are skipped.
//
// By default recording is suspended during the backward pass. With
// CreateGraph the gradient computation itself is recorded, so a later
// Backward call can differentiate through the returned gradients. Every
// operation's backward pass is written in terms of backend calls, which is
// what makes that second pass exact rather than approximate.
func (t *GradientTape) Backward(root *tensor.RawTensor, backend tensor.Backend, opts ...BackwardOption) Gradients {
	var cfg backwardConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.createGraph {
		wasRecording := t.recording
		t.recording = false
		defer func() { t.recording = wasRecording }()
	}

	grads := make(Gradients)
	if len(t.operations) == 0 {
		return grads
	}

	// Seed: d(root)/d(root) = 1.
	grads[root] = tensor.Ones(root.Shape())

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outputGrad, ok := grads[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.Backward(outputGrad, backend)
		t.accumulate(op, inputGrads, grads, backend)
	}

	return grads
}

// accumulate adds input gradients into the gradient map, summing when a
// tensor is used by more than one operation.
func (t *GradientTape) accumulate(op ops.Operation, inputGrads []*tensor.RawTensor, grads Gradients, backend tensor.Backend) {
	inputs := op.Inputs()
	for j, input := range inputs {
		if j >= len(inputGrads) || inputGrads[j] == nil {
			continue
		}
		if existing, ok := grads[input]; ok {
			grads[input] = backend.Add(existing, inputGrads[j])
		} else {
			grads[input] = inputGrads[j]
		}
	}
}

// backwardConfig holds options for a backward pass.
type backwardConfig struct {
	createGraph bool
}

// BackwardOption configures a backward pass.
type BackwardOption func(*backwardConfig)

// CreateGraph keeps the tape recording during the backward pass so the
// computed gradients can themselves be differentiated.
func CreateGraph() BackwardOption {
	return func(c *backwardConfig) { c.createGraph = true }
}
