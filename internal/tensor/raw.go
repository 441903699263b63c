// Package tensor provides the numeric substrate for the estimator: shapes,
// dense float64 tensors and the Backend compute interface.
//
// The estimator is a statistics engine, not a throughput engine, so tensors
// are deliberately simple: one dtype (float64, required by the bias and
// variance tolerances of the gradient tests), row-major contiguous storage,
// and no views. Every operation allocates a fresh result, which keeps the
// autodiff graph free of aliasing.
package tensor

import "fmt"

// RawTensor is a dense, row-major float64 tensor.
type RawTensor struct {
	data  []float64
	shape Shape
}

// NewRaw creates a zero-initialized RawTensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		data:  make([]float64, shape.NumElements()),
		shape: shape.Clone(),
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Data returns the backing slice. The slice is shared, not copied.
func (r *RawTensor) Data() []float64 {
	return r.data
}

// NumElements returns the number of elements in the tensor.
func (r *RawTensor) NumElements() int {
	return len(r.data)
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]float64, len(r.data))
	copy(data, r.data)
	return &RawTensor{data: data, shape: r.shape.Clone()}
}

// Item returns the single element of a one-element tensor.
// Panics if the tensor holds more than one element.
func (r *RawTensor) Item() float64 {
	if len(r.data) != 1 {
		panic(fmt.Sprintf("Item: tensor has %d elements, want 1", len(r.data)))
	}
	return r.data[0]
}

// String returns a compact debug representation.
func (r *RawTensor) String() string {
	if len(r.data) <= 8 {
		return fmt.Sprintf("RawTensor%v%v", r.shape, r.data)
	}
	return fmt.Sprintf("RawTensor%v[%v %v %v ...]", r.shape, r.data[0], r.data[1], r.data[2])
}
