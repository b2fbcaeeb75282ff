package cpu

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("mul_scalar", x, scalar, mulKernel)
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("add_scalar", x, scalar, addKernel)
}

// SubScalar subtracts a scalar from every element.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("sub_scalar", x, scalar, subKernel)
}

// DivScalar divides every element by a scalar.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if isZeroScalar(scalar) {
		panic("div_scalar: division by zero")
	}
	return cpu.scalarOp("div_scalar", x, scalar, divKernel)
}

func (cpu *CPUBackend) scalarOp(name string, x *tensor.RawTensor, scalar any, k binaryKernel) *tensor.RawTensor {
	result := mustNewRaw(name, x.Shape(), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		scalarLoop(result.AsFloat32(), x.AsFloat32(), toFloat32(name, scalar), k.f32)
	case tensor.Float64:
		scalarLoop(result.AsFloat64(), x.AsFloat64(), toFloat64(name, scalar), k.f64)
	case tensor.Int32:
		scalarLoop(result.AsInt32(), x.AsInt32(), toInt32(name, scalar), k.i32)
	case tensor.Int64:
		scalarLoop(result.AsInt64(), x.AsInt64(), toInt64(name, scalar), k.i64)
	default:
		panic(name + ": unsupported dtype " + x.DType().String())
	}

	return result
}

func scalarLoop[T number](dst, src []T, scalar T, f func(T, T) T) {
	for i := range dst {
		dst[i] = f(src[i], scalar)
	}
}

func isZeroScalar(scalar any) bool {
	switch v := scalar.(type) {
	case float32:
		return v == 0
	case float64:
		return v == 0
	case int:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	default:
		return false
	}
}

// Scalars arrive as `any` from the generic tensor layer; conversions accept
// the common numeric types and coerce to the tensor's dtype.

func toFloat32(op string, scalar any) float32 {
	switch v := scalar.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	case int32:
		return float32(v)
	case int64:
		return float32(v)
	default:
		panic(fmt.Sprintf("%s: cannot convert %T to float32", op, scalar))
	}
}

func toFloat64(op string, scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic(fmt.Sprintf("%s: cannot convert %T to float64", op, scalar))
	}
}

func toInt32(op string, scalar any) int32 {
	switch v := scalar.(type) {
	case int:
		return int32(v)
	case int32:
		return v
	case int64:
		return int32(v)
	default:
		panic(fmt.Sprintf("%s: cannot convert %T to int32", op, scalar))
	}
}

func toInt64(op string, scalar any) int64 {
	switch v := scalar.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	default:
		panic(fmt.Sprintf("%s: cannot convert %T to int64", op, scalar))
	}
}
