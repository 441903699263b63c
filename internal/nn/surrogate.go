package nn

import (
	"fmt"
	"math/rand"

	"github.com/rebar-ml/rebar/internal/tensor"
)

// Surrogate is a small trainable approximation of the loss on relaxed
// inputs: a one-hidden-layer ReLU network mapping [rows, vars] to one scalar
// per row.
//
// The same weight set is shared across its two call sites per step (the z
// and z̃ relaxations), matching the variable-reuse semantics of the relaxed
// estimator.
type Surrogate struct {
	hidden *Linear
	out    *Linear
}

// NewSurrogate creates a surrogate for inputs with vars coordinates per row.
func NewSurrogate(vars, hiddenSize int, rng *rand.Rand) (*Surrogate, error) {
	if vars <= 0 || hiddenSize <= 0 {
		return nil, fmt.Errorf("nn: surrogate sizes must be positive, got vars=%d hidden=%d", vars, hiddenSize)
	}
	return &Surrogate{
		hidden: NewLinear("surrogate.hidden", vars, hiddenSize, rng),
		out:    NewLinear("surrogate.out", hiddenSize, 1, rng),
	}, nil
}

// Forward evaluates the surrogate on input of shape [rows, vars] and returns
// a [rows] tensor of per-row values.
func (s *Surrogate) Forward(backend tensor.Backend, input *tensor.RawTensor) *tensor.RawTensor {
	h := backend.ReLU(s.hidden.Forward(backend, input))
	out := s.out.Forward(backend, h) // [rows, 1]
	rows := input.Shape()[0]
	return backend.Reshape(out, tensor.Shape{rows})
}

// Parameters returns all trainable surrogate parameters.
func (s *Surrogate) Parameters() []*Parameter {
	return append(s.hidden.Parameters(), s.out.Parameters()...)
}
