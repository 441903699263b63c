// Package ops defines operation records for automatic differentiation.
//
// Each operation stores its input and output tensors during the forward pass
// and computes input gradients during the backward pass.
//
// Backward passes are expressed through Backend calls rather than raw loops
// wherever the gradient depends on graph values. When the backend passed to
// Backward is itself a recording backend, the gradient computation lands on
// the tape too, which is what enables differentiating through an existing
// gradient (reverse-over-reverse) for the variance controller.
package ops

import "github.com/rebar-ml/rebar/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns one gradient per input tensor; a nil entry means no gradient
	// flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
