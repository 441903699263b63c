package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rebar-ml/rebar/internal/tensor"
)

// Linear is a fully connected layer: output = input @ W + b.
type Linear struct {
	weight *Parameter // [inFeatures, outFeatures]
	bias   *Parameter // [1, outFeatures]
}

// NewLinear creates a linear layer with Xavier-uniform initialized weights
// and zero bias. The rng makes initialization reproducible.
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	bound := math.Sqrt(6.0 / float64(inFeatures+outFeatures))
	w := tensor.Zeros(tensor.Shape{inFeatures, outFeatures})
	data := w.Data()
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}

	return &Linear{
		weight: NewParameter(fmt.Sprintf("%s.weight", name), w),
		bias:   NewParameter(fmt.Sprintf("%s.bias", name), tensor.Zeros(tensor.Shape{1, outFeatures})),
	}
}

// Forward computes input @ W + b for input of shape [rows, inFeatures].
func (l *Linear) Forward(backend tensor.Backend, input *tensor.RawTensor) *tensor.RawTensor {
	return backend.Add(backend.MatMul(input, l.weight.Value()), l.bias.Value())
}

// Parameters returns the layer's trainable parameters.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}
