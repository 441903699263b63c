// Package autodiff implements reverse-mode automatic differentiation as a
// decorator backend.
//
// Backend wraps any tensor.Backend implementation and records every
// differentiable operation on a GradientTape during the forward pass. The
// tape then computes gradients by walking the operations in reverse.
//
// Two properties matter for the gradient estimator built on top:
//
//   - Graph control: Detach and Heaviside are never recorded, so discrete
//     samples and regression targets are constants by construction, not by
//     convention.
//   - Second-order support: backward passes run through the same recording
//     backend, so Backward with CreateGraph leaves the gradient computation
//     on the tape and a squared gradient can be differentiated again. The
//     variance controller depends on this.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := backend.Mul(x, x)
//	grads := backend.Tape().Backward(y, backend)
package autodiff

import (
	"github.com/rebar-ml/rebar/internal/autodiff/ops"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// Backend wraps an inner compute backend and records operations on a tape.
// It implements tensor.Backend.
type Backend struct {
	inner tensor.Backend
	tape  *GradientTape
}

// New creates a new recording backend wrapping the given backend.
func New(inner tensor.Backend) *Backend {
	return &Backend{
		inner: inner,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control: starting and stopping
// recording, clearing between steps, running backward passes.
func (b *Backend) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *Backend) Inner() tensor.Backend { return b.inner }

// Name returns the backend name.
func (b *Backend) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Add performs element-wise addition and records the operation.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, result))
	return result
}

// Div performs element-wise division and records the operation.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(x, y)
	b.tape.Record(ops.NewDivOp(x, y, result))
	return result
}

// AddScalar adds a scalar element-wise and records the operation.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	result := b.inner.AddScalar(x, s)
	b.tape.Record(ops.NewAddScalarOp(x, result))
	return result
}

// MulScalar multiplies by a scalar element-wise and records the operation.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	result := b.inner.MulScalar(x, s)
	b.tape.Record(ops.NewMulScalarOp(x, result, s))
	return result
}

// Exp computes the element-wise exponential and records the operation.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Exp(x)
	b.tape.Record(ops.NewExpOp(x, result))
	return result
}

// Log computes the element-wise logarithm and records the operation.
func (b *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Log(x)
	b.tape.Record(ops.NewLogOp(x, result))
	return result
}

// Sigmoid applies the sigmoid activation and records the operation.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sigmoid(x)
	b.tape.Record(ops.NewSigmoidOp(x, result))
	return result
}

// ReLU applies max(0, x) and records the operation.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, result))
	return result
}

// Clip limits values into [lo, hi] and records the operation.
func (b *Backend) Clip(x *tensor.RawTensor, lo, hi float64) *tensor.RawTensor {
	result := b.inner.Clip(x, lo, hi)
	b.tape.Record(ops.NewClipOp(x, result, lo, hi))
	return result
}

// Mean computes the mean over all elements and records the operation.
func (b *Backend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mean(x)
	b.tape.Record(ops.NewMeanOp(x, result))
	return result
}

// SumDim sums along a dimension and records the operation.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	return result
}

// MeanDim averages along a dimension and records the operation.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.MeanDim(x, dim, keepDim)
	b.tape.Record(ops.NewMeanDimOp(x, result, dim, keepDim))
	return result
}

// MatMul performs 2-D matrix multiplication and records the operation.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, result))
	return result
}

// Transpose swaps the dimensions of a 2-D tensor and records the operation.
func (b *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Transpose(x)
	b.tape.Record(ops.NewTransposeOp(x, result))
	return result
}

// Reshape changes the shape and records the operation.
func (b *Backend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(x, newShape)
	b.tape.Record(ops.NewReshapeOp(x, result))
	return result
}

// Expand broadcasts to a larger shape and records the operation.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Expand(x, shape)
	b.tape.Record(ops.NewExpandOp(x, result))
	return result
}

// Detach returns a constant copy of x. The copy is deliberately not
// recorded: no gradient ever flows through a detached tensor.
func (b *Backend) Detach(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Detach(x)
}

// Heaviside computes 1[x > 0] as a constant. The discretization of the
// latent sample is non-differentiable by construction, which is the reason
// a gradient estimator exists at all, so this is never recorded.
func (b *Backend) Heaviside(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Heaviside(x)
}
