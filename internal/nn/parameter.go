// Package nn provides trainable parameters and the small feed-forward
// surrogate used by the relaxed estimator variant.
package nn

import "github.com/rebar-ml/rebar/internal/tensor"

// Parameter is a named trainable tensor.
//
// The raw tensor pointer doubles as the parameter's identity in gradient
// maps: forward passes use Value() as a graph leaf, Backward keys its
// gradient by the same pointer, and optimizers mutate the backing data in
// place between steps.
type Parameter struct {
	name  string
	value *tensor.RawTensor
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, value *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Value returns the parameter tensor.
func (p *Parameter) Value() *tensor.RawTensor { return p.value }
