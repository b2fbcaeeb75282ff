package cpu

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// Sum reduces the tensor to a single-element tensor holding the total sum.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := mustNewRaw("sum", tensor.Shape{1}, x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumSlice(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumSlice(x.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = sumSlice(x.AsInt32())
	case tensor.Int64:
		result.AsInt64()[0] = sumSlice(x.AsInt64())
	default:
		panic("sum: unsupported dtype " + x.DType().String())
	}

	return result
}

// SumDim sums along one dimension. Negative dims index from the end.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sum_dim", x, dim, keepDim, false)
}

// MeanDim averages along one dimension. Negative dims index from the end.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("mean_dim", x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %dD tensor", name, dim, ndim))
	}

	outShape := reducedShape(shape, dim, keepDim)
	result := mustNewRaw(name, outShape, x.DType(), cpu.device)

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	size := shape[dim]
	inner := 1
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}

	switch x.DType() {
	case tensor.Float32:
		reduceDimLoop(result.AsFloat32(), x.AsFloat32(), outer, size, inner, mean)
	case tensor.Float64:
		reduceDimLoop(result.AsFloat64(), x.AsFloat64(), outer, size, inner, mean)
	default:
		panic(name + ": unsupported dtype " + x.DType().String())
	}

	return result
}

// reducedShape drops (or keeps as 1) the reduced dimension. Reducing the only
// dimension of a 1D tensor yields shape {1}.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	out := make(tensor.Shape, 0, len(shape)-1)
	for i, d := range shape {
		if i != dim {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}

func reduceDimLoop[T ~float32 | ~float64](dst, src []T, outer, size, inner int, mean bool) {
	for o := 0; o < outer; o++ {
		base := o * size * inner
		for in := 0; in < inner; in++ {
			var acc T
			for s := 0; s < size; s++ {
				acc += src[base+s*inner+in]
			}
			if mean {
				acc /= T(size)
			}
			dst[o*inner+in] = acc
		}
	}
}

func sumSlice[T number](xs []T) T {
	var acc T
	for _, v := range xs {
		acc += v
	}
	return acc
}
