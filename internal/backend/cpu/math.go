package cpu

import (
	"math"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// Exp computes the element-wise exponential.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryMath("exp", x, math.Exp)
}

// Log computes the element-wise natural logarithm.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryMath("log", x, math.Log)
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryMath("sqrt", x, math.Sqrt)
}

// Rsqrt computes the element-wise reciprocal square root.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryMath("rsqrt", x, func(v float64) float64 {
		return 1.0 / math.Sqrt(v)
	})
}

// unaryMath applies f element-wise. Float tensors only; f operates on float64
// with widening for float32 inputs.
func (cpu *CPUBackend) unaryMath(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result := mustNewRaw(name, x.Shape(), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i := range dst {
			dst[i] = float32(f(float64(src[i])))
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i := range dst {
			dst[i] = f(src[i])
		}
	default:
		panic(name + ": unsupported dtype " + x.DType().String())
	}

	return result
}
