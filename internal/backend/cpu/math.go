package cpu

import (
	"math"

	"github.com/rebar-ml/rebar/internal/tensor"
)

func mapUnary(x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	out := tensor.Zeros(x.Shape())
	outData := out.Data()
	for i, v := range x.Data() {
		outData[i] = f(v)
	}
	return out
}

// AddScalar adds a scalar to every element.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return mapUnary(x, func(v float64) float64 { return v + s })
}

// MulScalar multiplies every element by a scalar.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return mapUnary(x, func(v float64) float64 { return v * s })
}

// Exp computes the element-wise exponential.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return mapUnary(x, math.Exp)
}

// Log computes the element-wise natural logarithm.
// Input values must be positive; use Clip first when they may saturate.
func (b *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return mapUnary(x, math.Log)
}

// Sigmoid computes 1 / (1 + exp(-x)) element-wise.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return mapUnary(x, func(v float64) float64 { return 1.0 / (1.0 + math.Exp(-v)) })
}

// ReLU computes max(0, x) element-wise.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return mapUnary(x, func(v float64) float64 { return math.Max(0, v) })
}

// Clip limits every element into [lo, hi].
func (b *Backend) Clip(x *tensor.RawTensor, lo, hi float64) *tensor.RawTensor {
	return mapUnary(x, func(v float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	})
}

// Detach returns a copy of x. On the plain CPU backend this is just Clone;
// the autodiff backend overrides the semantics by not recording it.
func (b *Backend) Detach(x *tensor.RawTensor) *tensor.RawTensor {
	return x.Clone()
}

// Heaviside computes 1 where x > 0 and 0 elsewhere.
func (b *Backend) Heaviside(x *tensor.RawTensor) *tensor.RawTensor {
	return mapUnary(x, func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
}
