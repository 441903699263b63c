// Package stability provides numerically safe log, clip and softplus
// primitives for probability-scale values.
//
// All helpers are pure functions over backend operations, so they record on
// the tape like any other op and stay differentiable to second order.
package stability

import "github.com/rebar-ml/rebar/internal/tensor"

// Eps is the lower clipping bound for probability-scale values.
const Eps = 1e-8

// SafeClip clips x into [Eps, 1].
func SafeClip(backend tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor {
	return backend.Clip(x, Eps, 1)
}

// SafeLog clips x into [Eps, 1] before taking the log, so saturated
// probabilities never produce -Inf or NaN.
func SafeLog(backend tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor {
	return backend.Log(SafeClip(backend, x))
}

// Softplus computes log(1 + exp(x)) in max-shifted form.
//
// Let m = max(0, x). Then
//
//	softplus(x) = log(e^0 + e^x) = m + log(e^(-m) + e^(x-m))
//
// Both exponentiated terms are in [1/e, 1] and their sum in [1, 2], so the
// formula is exact and never overflows, for any magnitude of x.
func Softplus(backend tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor {
	m := backend.ReLU(x)
	negM := backend.MulScalar(m, -1)
	inner := backend.Add(backend.Exp(negM), backend.Exp(backend.Sub(x, m)))
	return backend.Add(m, backend.Log(inner))
}
