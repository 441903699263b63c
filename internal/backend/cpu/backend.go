// Package cpu implements the pure-Go reference backend.
//
// It performs the actual arithmetic for tensor operations; gradient tracking
// lives in the autodiff package, which wraps this backend.
package cpu

import (
	"fmt"

	"github.com/rebar-ml/rebar/internal/tensor"
)

// Backend is the CPU compute backend.
type Backend struct{}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "CPU"
}

// Add performs element-wise addition with broadcasting.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return broadcastBinary(x, y, func(a, c float64) float64 { return a + c })
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return broadcastBinary(x, y, func(a, c float64) float64 { return a - c })
}

// Mul performs element-wise multiplication with broadcasting.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return broadcastBinary(x, y, func(a, c float64) float64 { return a * c })
}

// Div performs element-wise division with broadcasting.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return broadcastBinary(x, y, func(a, c float64) float64 { return a / c })
}

// broadcastBinary applies f element-wise over two tensors, broadcasting
// shapes NumPy-style.
func broadcastBinary(x, y *tensor.RawTensor, f func(a, c float64) float64) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("cpu: %v", err))
	}

	out := tensor.Zeros(outShape)
	outData := out.Data()
	xData, yData := x.Data(), y.Data()

	if !needsBroadcast {
		for i := range outData {
			outData[i] = f(xData[i], yData[i])
		}
		return out
	}

	xStrides := broadcastStrides(x.Shape(), outShape)
	yStrides := broadcastStrides(y.Shape(), outShape)
	outStrides := outShape.ComputeStrides()

	for i := range outData {
		xi, yi := 0, 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			xi += coord * xStrides[d]
			yi += coord * yStrides[d]
		}
		outData[i] = f(xData[xi], yData[yi])
	}
	return out
}

// broadcastStrides returns strides for indexing `shape` as if it were
// broadcast to `outShape`: missing or size-1 dimensions get stride 0.
func broadcastStrides(shape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	inStrides := shape.ComputeStrides()
	offset := len(outShape) - len(shape)
	for d := range outShape {
		src := d - offset
		if src < 0 || shape[src] == 1 {
			strides[d] = 0
		} else {
			strides[d] = inStrides[src]
		}
	}
	return strides
}
