package ops

import "github.com/rebar-ml/rebar/internal/tensor"

// ExpOp represents the element-wise exponential: output = exp(input).
//
// Backward: d(exp(x))/dx = exp(x) = output, so the gradient reuses the
// forward result, which is itself a tape node.
type ExpOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpOp creates a new exp operation.
func NewExpOp(input, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *ExpOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *ExpOp) Output() *tensor.RawTensor { return op.output }

// Backward computes grad_input = outputGrad * exp(input).
func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

// LogOp represents the element-wise natural logarithm: output = log(input).
//
// Backward: d(log(x))/dx = 1/x. Input values are assumed positive; the
// stability kernel clips them before taking the log.
type LogOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewLogOp creates a new log operation.
func NewLogOp(input, output *tensor.RawTensor) *LogOp {
	return &LogOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *LogOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *LogOp) Output() *tensor.RawTensor { return op.output }

// Backward computes grad_input = outputGrad / input.
func (op *LogOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(outputGrad, op.input)}
}

// SigmoidOp represents the sigmoid activation: output = 1 / (1 + exp(-input)).
//
// Backward uses the already-computed output: dσ/dx = σ(x) * (1 - σ(x)).
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new sigmoid operation.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *SigmoidOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *SigmoidOp) Output() *tensor.RawTensor { return op.output }

// Backward computes grad_input = outputGrad * σ(x) * (1 - σ(x)).
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	oneMinus := backend.AddScalar(backend.MulScalar(op.output, -1), 1)
	deriv := backend.Mul(op.output, oneMinus)
	return []*tensor.RawTensor{backend.Mul(outputGrad, deriv)}
}

// ReLUOp represents the rectified linear unit: output = max(0, input).
//
// Backward: the gradient passes where input > 0. The mask is a constant with
// respect to all parameters, so it is built outside the tape.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLU operation.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }

// Backward computes grad_input = outputGrad * 1[input > 0].
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	mask := backend.Heaviside(op.input)
	return []*tensor.RawTensor{backend.Mul(outputGrad, mask)}
}
