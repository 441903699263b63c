package cpu

import (
	"fmt"

	"github.com/rebar-ml/rebar/internal/tensor"
)

// MatMul performs 2-D matrix multiplication: [M,K] @ [K,N] -> [M,N].
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 {
		panic(fmt.Sprintf("cpu: MatMul: want 2-D tensors, got %v and %v", xs, ys))
	}
	if xs[1] != ys[0] {
		panic(fmt.Sprintf("cpu: MatMul: inner dimensions do not match: %v @ %v", xs, ys))
	}

	m, k, n := xs[0], xs[1], ys[1]
	out := tensor.Zeros(tensor.Shape{m, n})
	outData := out.Data()
	xData, yData := x.Data(), y.Data()

	for i := 0; i < m; i++ {
		for l := 0; l < k; l++ {
			xv := xData[i*k+l]
			if xv == 0 {
				continue
			}
			row := yData[l*n : (l+1)*n]
			outRow := outData[i*n : (i+1)*n]
			for j, yv := range row {
				outRow[j] += xv * yv
			}
		}
	}
	return out
}

// Transpose swaps the two dimensions of a 2-D tensor.
func (b *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	xs := x.Shape()
	if len(xs) != 2 {
		panic(fmt.Sprintf("cpu: Transpose: want a 2-D tensor, got %v", xs))
	}

	m, n := xs[0], xs[1]
	out := tensor.Zeros(tensor.Shape{n, m})
	outData := out.Data()
	data := x.Data()

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			outData[j*m+i] = data[i*n+j]
		}
	}
	return out
}
