package ops

import "github.com/rebar-ml/rebar/internal/tensor"

// MeanOp represents the mean over all elements: output = mean(input).
//
// Backward: every element receives outputGrad / N.
type MeanOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewMeanOp creates a new full-mean operation.
func NewMeanOp(input, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *MeanOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the (scalar) output tensor.
func (op *MeanOp) Output() *tensor.RawTensor { return op.output }

// Backward broadcasts outputGrad / N back over the input shape.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	n := float64(op.input.NumElements())
	grad := backend.Expand(outputGrad, op.input.Shape())
	return []*tensor.RawTensor{backend.MulScalar(grad, 1/n)}
}

// SumDimOp represents a sum along one dimension.
//
// Backward: the gradient is broadcast back along the summed dimension.
type SumDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new dimension-sum operation.
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{input: input, output: output, dim: dim, keepDim: keepDim}
}

// Inputs returns the input tensors.
func (op *SumDimOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *SumDimOp) Output() *tensor.RawTensor { return op.output }

// Backward broadcasts the gradient back over the input shape.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		kept := op.input.Shape().Clone()
		kept[op.dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	return []*tensor.RawTensor{backend.Expand(grad, op.input.Shape())}
}

// MeanDimOp represents a mean along one dimension.
type MeanDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewMeanDimOp creates a new dimension-mean operation.
func NewMeanDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{input: input, output: output, dim: dim, keepDim: keepDim}
}

// Inputs returns the input tensors.
func (op *MeanDimOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *MeanDimOp) Output() *tensor.RawTensor { return op.output }

// Backward broadcasts outputGrad / n back along the averaged dimension.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	n := float64(op.input.Shape()[op.dim])
	grad := outputGrad
	if !op.keepDim {
		kept := op.input.Shape().Clone()
		kept[op.dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	grad = backend.Expand(grad, op.input.Shape())
	return []*tensor.RawTensor{backend.MulScalar(grad, 1/n)}
}
