package cpu

import (
	"math"
	"testing"

	"github.com/winter1pm/simsiam/internal/tensor"
)

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func floatsEqual(t *testing.T, got, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Fatalf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAddSameShape(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFromSlice(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	result := be.Add(a, b)
	floatsEqual(t, result.AsFloat32(), []float32{11, 22, 33, 44}, 0)
}

func TestAddDoesNotMutateSharedBuffer(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2}, tensor.Shape{2})
	b := rawFromSlice(t, []float32{3, 4}, tensor.Shape{2})

	view := a.Clone() // a is no longer unique, inplace path must not fire
	defer view.Release()

	result := be.Add(a, b)
	floatsEqual(t, result.AsFloat32(), []float32{4, 6}, 0)
	floatsEqual(t, view.AsFloat32(), []float32{1, 2}, 0)
}

func TestAddBroadcastRowVector(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFromSlice(t, []float32{10, 20, 30}, tensor.Shape{3})

	result := be.Add(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("result shape = %v, want [2 3]", result.Shape())
	}
	floatsEqual(t, result.AsFloat32(), []float32{11, 22, 33, 14, 25, 36}, 0)
}

func TestSubBroadcastColumnVector(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFromSlice(t, []float32{1, 10}, tensor.Shape{2, 1})

	result := be.Sub(a, b)
	floatsEqual(t, result.AsFloat32(), []float32{0, 1, -7, -6}, 0)
}

func TestDivSameShape(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{2, 9, 8}, tensor.Shape{3})
	b := rawFromSlice(t, []float32{2, 3, 4}, tensor.Shape{3})

	result := be.Div(a, b)
	floatsEqual(t, result.AsFloat32(), []float32{1, 3, 2}, 0)
}

func TestMatMul(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFromSlice(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	result := be.MatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("result shape = %v, want [2 2]", result.Shape())
	}
	floatsEqual(t, result.AsFloat32(), []float32{58, 64, 139, 154}, 1e-5)
}

func TestMatMulShapeMismatchPanics(t *testing.T) {
	be := New()
	a := rawFromSlice(t, make([]float32, 6), tensor.Shape{2, 3})
	b := rawFromSlice(t, make([]float32, 8), tensor.Shape{4, 2})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on inner dimension mismatch")
		}
	}()
	be.MatMul(a, b)
}

func TestTranspose2D(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := be.Transpose(a)
	if !result.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("result shape = %v, want [3 2]", result.Shape())
	}
	floatsEqual(t, result.AsFloat32(), []float32{1, 4, 2, 5, 3, 6}, 0)
}

func TestReshape(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := be.Reshape(a, tensor.Shape{3, 2})
	floatsEqual(t, result.AsFloat32(), []float32{1, 2, 3, 4, 5, 6}, 0)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on element count mismatch")
		}
	}()
	be.Reshape(a, tensor.Shape{4, 2})
}

func TestScalarOps(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3}, tensor.Shape{3})

	floatsEqual(t, be.MulScalar(a, float32(2)).AsFloat32(), []float32{2, 4, 6}, 0)
	floatsEqual(t, be.AddScalar(a, float32(10)).AsFloat32(), []float32{11, 12, 13}, 0)
	floatsEqual(t, be.SubScalar(a, float32(1)).AsFloat32(), []float32{0, 1, 2}, 0)
	floatsEqual(t, be.DivScalar(a, float32(2)).AsFloat32(), []float32{0.5, 1, 1.5}, 0)
}

func TestDivScalarByZeroPanics(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1}, tensor.Shape{1})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on division by zero")
		}
	}()
	be.DivScalar(a, float32(0))
}

func TestMathOps(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 4, 9}, tensor.Shape{3})

	floatsEqual(t, be.Sqrt(a).AsFloat32(), []float32{1, 2, 3}, 1e-6)
	floatsEqual(t, be.Rsqrt(a).AsFloat32(), []float32{1, 0.5, 1.0 / 3.0}, 1e-6)

	e := be.Exp(rawFromSlice(t, []float32{0, 1}, tensor.Shape{2}))
	floatsEqual(t, e.AsFloat32(), []float32{1, float32(math.E)}, 1e-5)

	l := be.Log(rawFromSlice(t, []float32{1, float32(math.E)}, tensor.Shape{2}))
	floatsEqual(t, l.AsFloat32(), []float32{0, 1}, 1e-5)
}

func TestSum(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	result := be.Sum(a)
	floatsEqual(t, result.AsFloat32(), []float32{10}, 0)
}

func TestSumDim(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	rows := be.SumDim(a, 1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("shape = %v, want [2]", rows.Shape())
	}
	floatsEqual(t, rows.AsFloat32(), []float32{6, 15}, 0)

	cols := be.SumDim(a, 0, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("shape = %v, want [1 3]", cols.Shape())
	}
	floatsEqual(t, cols.AsFloat32(), []float32{5, 7, 9}, 0)
}

func TestSumDimNegativeIndex(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := be.SumDim(a, -1, false)
	floatsEqual(t, result.AsFloat32(), []float32{6, 15}, 0)
}

func TestMeanDim(t *testing.T) {
	be := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := be.MeanDim(a, 1, true)
	if !result.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("shape = %v, want [2 1]", result.Shape())
	}
	floatsEqual(t, result.AsFloat32(), []float32{2, 5}, 1e-6)
}

func TestBackendName(t *testing.T) {
	be := New()
	if be.Name() == "" {
		t.Error("empty backend name")
	}
	if be.Device() != tensor.CPU {
		t.Errorf("device = %v, want CPU", be.Device())
	}
}
