package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebar-ml/rebar/internal/tensor"
)

func fromSlice(t *testing.T, data []float64, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	out, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return out
}

func TestAddBroadcasting(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	row := fromSlice(t, []float64{10, 20, 30}, tensor.Shape{1, 3})

	got := b.Add(x, row)
	assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
	assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, got.Data())
}

func TestSubColumnBroadcast(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	col := fromSlice(t, []float64{1, 10}, tensor.Shape{2, 1})

	got := b.Sub(x, col)
	assert.Equal(t, []float64{0, 1, -7, -6}, got.Data())
}

func TestMulColumnTimesRow(t *testing.T) {
	b := New()
	col := fromSlice(t, []float64{1, 2}, tensor.Shape{2, 1})
	row := fromSlice(t, []float64{3, 4, 5}, tensor.Shape{1, 3})

	got := b.Mul(col, row)
	assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
	assert.Equal(t, []float64{3, 4, 5, 6, 8, 10}, got.Data())
}

func TestDiv(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{2, 4, 8}, tensor.Shape{3})
	y := fromSlice(t, []float64{2, 2, 2}, tensor.Shape{3})
	assert.Equal(t, []float64{1, 2, 4}, b.Div(x, y).Data())
}

func TestScalarOps(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, -2, 3}, tensor.Shape{3})
	assert.Equal(t, []float64{2, -1, 4}, b.AddScalar(x, 1).Data())
	assert.Equal(t, []float64{-2, 4, -6}, b.MulScalar(x, -2).Data())
}

func TestUnaryOps(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{0, 1, -1}, tensor.Shape{3})

	exp := b.Exp(x)
	assert.InDelta(t, 1.0, exp.Data()[0], 1e-12)
	assert.InDelta(t, 2.718281828459045, exp.Data()[1], 1e-12)

	sig := b.Sigmoid(x)
	assert.InDelta(t, 0.5, sig.Data()[0], 1e-12)
	assert.InDelta(t, 1.0, sig.Data()[1]+sig.Data()[2], 1e-12, "sigmoid(x) + sigmoid(-x) = 1")

	relu := b.ReLU(x)
	assert.Equal(t, []float64{0, 1, 0}, relu.Data())
}

func TestClip(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{-1, 0.5, 2}, tensor.Shape{3})
	assert.Equal(t, []float64{0, 0.5, 1}, b.Clip(x, 0, 1).Data())
}

func TestHeaviside(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{-0.1, 0, 0.1, 5}, tensor.Shape{4})
	assert.Equal(t, []float64{0, 0, 1, 1}, b.Heaviside(x).Data())
}

func TestMean(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	got := b.Mean(x)
	assert.Equal(t, tensor.Shape{}, got.Shape())
	assert.InDelta(t, 2.5, got.Data()[0], 1e-12)
}

func TestSumDim(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	rows := b.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, rows.Shape())
	assert.Equal(t, []float64{5, 7, 9}, rows.Data())

	cols := b.SumDim(x, 1, true)
	assert.Equal(t, tensor.Shape{2, 1}, cols.Shape())
	assert.Equal(t, []float64{6, 15}, cols.Data())
}

func TestMeanDim(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})

	got := b.MeanDim(x, 0, false)
	assert.Equal(t, tensor.Shape{2}, got.Shape())
	assert.Equal(t, []float64{3, 4}, got.Data())
}

func TestMatMul(t *testing.T) {
	b := New()
	a := fromSlice(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	x := fromSlice(t, []float64{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	got := b.MatMul(a, x)
	assert.Equal(t, tensor.Shape{2, 2}, got.Shape())
	assert.Equal(t, []float64{58, 64, 139, 154}, got.Data())
}

func TestTranspose(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	got := b.Transpose(x)
	assert.Equal(t, tensor.Shape{3, 2}, got.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, got.Data())
}

func TestReshape(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	got := b.Reshape(x, tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, got.Shape())
	assert.Equal(t, x.Data(), got.Data())
}

func TestExpand(t *testing.T) {
	b := New()
	row := fromSlice(t, []float64{1, 2, 3}, tensor.Shape{1, 3})

	got := b.Expand(row, tensor.Shape{2, 3})
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, got.Data())

	scalar := tensor.Scalar(7)
	got = b.Expand(scalar, tensor.Shape{2, 2})
	assert.Equal(t, []float64{7, 7, 7, 7}, got.Data())
}

func TestDetachIsCopy(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2}, tensor.Shape{2})

	d := b.Detach(x)
	d.Data()[0] = 99
	assert.Equal(t, 1.0, x.Data()[0])
}

func TestOpsAllocateFreshOutputs(t *testing.T) {
	b := New()
	x := fromSlice(t, []float64{1, 2}, tensor.Shape{2})
	y := fromSlice(t, []float64{3, 4}, tensor.Shape{2})

	sum := b.Add(x, y)
	sum.Data()[0] = 99
	assert.Equal(t, []float64{1, 2}, x.Data())
	assert.Equal(t, []float64{3, 4}, y.Data())
}
