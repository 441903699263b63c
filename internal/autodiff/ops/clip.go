package ops

import "github.com/rebar-ml/rebar/internal/tensor"

// ClipOp represents element-wise clipping into [lo, hi].
//
// Backward: the gradient passes unchanged where the input was strictly
// inside the bounds and is zero where the value was clipped, matching the
// clip-by-value convention the estimator relies on for saturated
// probabilities.
type ClipOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	lo, hi float64
}

// NewClipOp creates a new clip operation.
func NewClipOp(input, output *tensor.RawTensor, lo, hi float64) *ClipOp {
	return &ClipOp{input: input, output: output, lo: lo, hi: hi}
}

// Inputs returns the input tensors.
func (op *ClipOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *ClipOp) Output() *tensor.RawTensor { return op.output }

// Backward computes grad_input = outputGrad * 1[lo <= input <= hi].
func (op *ClipOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// The mask is constant w.r.t. all parameters; built outside the tape.
	mask := tensor.Zeros(op.input.Shape())
	maskData := mask.Data()
	for i, v := range op.input.Data() {
		if v >= op.lo && v <= op.hi {
			maskData[i] = 1
		}
	}
	return []*tensor.RawTensor{backend.Mul(outputGrad, mask)}
}
