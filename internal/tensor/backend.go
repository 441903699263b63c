package tensor

// Backend defines the interface that compute backends must implement.
//
// Implementations:
//   - cpu.Backend: pure Go reference implementation
//   - autodiff.Backend: decorator that records operations for reverse-mode
//     differentiation and delegates the arithmetic to an inner backend
//
// Binary operations follow NumPy broadcasting rules. All operations return
// freshly allocated tensors.
type Backend interface {
	// Element-wise binary operations (broadcasting).
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Element-wise operations with a scalar.
	AddScalar(x *RawTensor, s float64) *RawTensor
	MulScalar(x *RawTensor, s float64) *RawTensor

	// Element-wise unary operations.
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Clip limits every element into [lo, hi].
	Clip(x *RawTensor, lo, hi float64) *RawTensor

	// Reductions.
	Mean(x *RawTensor) *RawTensor                           // mean over all elements (scalar result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dimension
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dimension

	// Matrix operations (2-D tensors).
	MatMul(a, b *RawTensor) *RawTensor
	Transpose(x *RawTensor) *RawTensor

	// Shape operations.
	Reshape(x *RawTensor, newShape Shape) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor // broadcast to shape

	// Graph-control operations. On a recording backend these cut the
	// gradient path; on a plain backend they are ordinary copies.
	Detach(x *RawTensor) *RawTensor    // constant copy of x
	Heaviside(x *RawTensor) *RawTensor // 1 where x > 0, else 0; never differentiable

	// Metadata.
	Name() string
}
