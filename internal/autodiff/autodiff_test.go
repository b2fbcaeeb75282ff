package autodiff

import (
	"math"
	"testing"

	"github.com/winter1pm/simsiam/internal/backend/cpu"
	"github.com/winter1pm/simsiam/internal/tensor"
)

func newBackend() *AutodiffBackend[*cpu.CPUBackend] {
	return New(cpu.New())
}

func fromSlice(t *testing.T, be *AutodiffBackend[*cpu.CPUBackend], data []float32, shape tensor.Shape) *tensor.Tensor[float32, *AutodiffBackend[*cpu.CPUBackend]] {
	t.Helper()
	ts, err := tensor.FromSlice[float32](data, shape, be)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func checkGrads(t *testing.T, got *tensor.RawTensor, want []float32, tol float64) {
	t.Helper()
	if got == nil {
		t.Fatal("missing gradient")
	}
	data := got.AsFloat32()
	if len(data) != len(want) {
		t.Fatalf("gradient length = %d, want %d", len(data), len(want))
	}
	for i := range want {
		if math.Abs(float64(data[i]-want[i])) > tol {
			t.Fatalf("grad[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

func TestMulGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{2, 3}, tensor.Shape{2})
	y := x.Mul(x) // y = x²

	grads := Backward(y, be)
	checkGrads(t, grads[x.Raw()], []float32{4, 6}, 1e-6) // dy/dx = 2x
}

func TestAddSubGradients(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	a := fromSlice(t, be, []float32{1, 2}, tensor.Shape{2})
	b := fromSlice(t, be, []float32{3, 4}, tensor.Shape{2})
	y := a.Add(b).Sub(a) // y = b, but both paths recorded

	grads := Backward(y, be)
	checkGrads(t, grads[a.Raw()], []float32{0, 0}, 1e-6)
	checkGrads(t, grads[b.Raw()], []float32{1, 1}, 1e-6)
}

func TestDivGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	a := fromSlice(t, be, []float32{6}, tensor.Shape{1})
	b := fromSlice(t, be, []float32{2}, tensor.Shape{1})
	y := a.Div(b)

	grads := Backward(y, be)
	checkGrads(t, grads[a.Raw()], []float32{0.5}, 1e-6)  // 1/b
	checkGrads(t, grads[b.Raw()], []float32{-1.5}, 1e-6) // -a/b²
}

func TestMatMulGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	a := fromSlice(t, be, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice(t, be, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	y := a.MatMul(b)

	grads := Backward(y, be)
	// grad_a = ones @ bᵀ, grad_b = aᵀ @ ones
	checkGrads(t, grads[a.Raw()], []float32{11, 15, 11, 15}, 1e-5)
	checkGrads(t, grads[b.Raw()], []float32{4, 4, 6, 6}, 1e-5)
}

func TestBroadcastAddReducesGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	a := fromSlice(t, be, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := fromSlice(t, be, []float32{10, 20, 30}, tensor.Shape{3})
	y := a.Add(bias)

	grads := Backward(y, be)
	// Gradient for the broadcast bias sums over the batch dimension.
	checkGrads(t, grads[bias.Raw()], []float32{2, 2, 2}, 1e-6)
}

func TestTransposeGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	a := fromSlice(t, be, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	scale := fromSlice(t, be, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
	y := a.T().Mul(scale)

	grads := Backward(y, be)
	// grad_a = transpose back of scale: permutes [3,2] -> [2,3].
	checkGrads(t, grads[a.Raw()], []float32{1, 3, 5, 2, 4, 6}, 1e-6)
}

func TestSqrtRsqrtGradients(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{4}, tensor.Shape{1})
	grads := Backward(x.Sqrt(), be)
	checkGrads(t, grads[x.Raw()], []float32{0.25}, 1e-6) // 1/(2·sqrt(4))

	be2 := newBackend()
	be2.Tape().StartRecording()
	x2 := fromSlice(t, be2, []float32{4}, tensor.Shape{1})
	grads2 := Backward(x2.Rsqrt(), be2)
	// d(x^-1/2)/dx = -0.5·x^-3/2 = -0.0625 at x=4
	checkGrads(t, grads2[x2.Raw()], []float32{-0.0625}, 1e-6)
}

func TestSumDimGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	grads := Backward(x.SumDim(-1, false), be)
	checkGrads(t, grads[x.Raw()], []float32{1, 1, 1, 1, 1, 1}, 1e-6)
}

func TestMeanDimGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	grads := Backward(x.MeanDim(1, false), be)
	third := float32(1.0 / 3.0)
	checkGrads(t, grads[x.Raw()], []float32{third, third, third, third, third, third}, 1e-6)
}

func TestScalarOpGradients(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{1, 2}, tensor.Shape{2})
	y := x.MulScalar(3).AddScalar(1)

	grads := Backward(y, be)
	checkGrads(t, grads[x.Raw()], []float32{3, 3}, 1e-6)
}

func TestReLUGradient(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{-1, 0, 2}, tensor.Shape{3})
	y := tensor.New[float32](be.ReLU(x.Raw()), be)

	grads := Backward(y, be)
	checkGrads(t, grads[x.Raw()], []float32{0, 0, 1}, 1e-6)
}

func TestStopRecordingExcludesOps(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{2}, tensor.Shape{1})
	_ = x.Mul(x)

	be.Tape().StopRecording()
	_ = x.Mul(x) // Not recorded

	if got := be.Tape().NumOps(); got != 1 {
		t.Errorf("NumOps = %d, want 1", got)
	}
}

func TestTapeClear(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{2}, tensor.Shape{1})
	_ = x.Mul(x)

	be.Tape().Clear()
	if be.Tape().NumOps() != 0 {
		t.Error("tape not empty after Clear")
	}
	if !be.Tape().IsRecording() {
		t.Error("Clear must preserve recording state")
	}
}

func TestGradientAccumulation(t *testing.T) {
	be := newBackend()
	be.Tape().StartRecording()

	x := fromSlice(t, be, []float32{3}, tensor.Shape{1})
	y := x.Mul(x).Add(x.Mul(x)) // y = 2x²

	grads := Backward(y, be)
	checkGrads(t, grads[x.Raw()], []float32{12}, 1e-5) // dy/dx = 4x
}
