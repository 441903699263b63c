package cpu

import (
	"fmt"

	"github.com/rebar-ml/rebar/internal/tensor"
)

// Mean computes the mean over all elements, producing a scalar tensor.
func (b *Backend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	var sum float64
	for _, v := range x.Data() {
		sum += v
	}
	return tensor.Scalar(sum / float64(x.NumElements()))
}

// SumDim sums along the given dimension.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("cpu: SumDim: invalid dimension %d for shape %v", dim, shape))
	}

	reduced := shape.Clone()
	reduced[dim] = 1
	out := tensor.Zeros(reduced)
	outData := out.Data()

	strides := shape.ComputeStrides()
	outStrides := reduced.ComputeStrides()
	data := x.Data()

	for i, v := range data {
		oi := 0
		rem := i
		for d := range shape {
			coord := rem / strides[d]
			rem %= strides[d]
			if d != dim {
				oi += coord * outStrides[d]
			}
		}
		outData[oi] += v
	}

	if !keepDim {
		out = b.Reshape(out, squeezeDim(reduced, dim))
	}
	return out
}

// MeanDim computes the mean along the given dimension.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	n := float64(x.Shape()[dim])
	return b.MulScalar(b.SumDim(x, dim, keepDim), 1/n)
}

// Reshape returns a tensor with the same data and a new shape.
func (b *Backend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("cpu: Reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			x.Shape(), x.NumElements(), newShape, newShape.NumElements()))
	}
	out, err := tensor.FromSlice(x.Data(), newShape)
	if err != nil {
		panic(fmt.Sprintf("cpu: Reshape: %v", err))
	}
	return out
}

// Expand broadcasts x to the given shape, materializing the result.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	bcast, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !bcast.Equal(shape) {
		panic(fmt.Sprintf("cpu: Expand: cannot broadcast %v to %v", x.Shape(), shape))
	}

	out := tensor.Zeros(shape)
	outData := out.Data()
	data := x.Data()

	srcStrides := broadcastStrides(x.Shape(), shape)
	outStrides := shape.ComputeStrides()

	for i := range outData {
		si := 0
		rem := i
		for d := range shape {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			si += coord * srcStrides[d]
		}
		outData[i] = data[si]
	}
	return out
}

// squeezeDim removes the (size-1) dimension at dim. A scalar shape is
// returned when no dimensions remain.
func squeezeDim(shape tensor.Shape, dim int) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape)-1)
	for d, size := range shape {
		if d == dim {
			continue
		}
		out = append(out, size)
	}
	return out
}
