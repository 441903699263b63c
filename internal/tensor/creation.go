package tensor

import "fmt"

// FromSlice creates a RawTensor from existing data. The data is copied.
func FromSlice(data []float64, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return &RawTensor{data: buf, shape: shape.Clone()}, nil
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *RawTensor {
	t, err := NewRaw(shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *RawTensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with the given value.
func Full(shape Shape, value float64) *RawTensor {
	t, err := NewRaw(shape)
	if err != nil {
		panic(err)
	}
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Scalar creates a zero-dimensional tensor holding one value.
func Scalar(value float64) *RawTensor {
	return &RawTensor{data: []float64{value}, shape: Shape{}}
}
