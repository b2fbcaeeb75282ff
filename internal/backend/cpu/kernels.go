package cpu

import (
	"github.com/winter1pm/simsiam/internal/tensor"
)

// number covers the dtypes element-wise arithmetic is defined for.
type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// binaryKernel bundles the per-dtype element functions of one binary op.
type binaryKernel struct {
	name string
	f32  func(a, b float32) float32
	f64  func(a, b float64) float64
	i32  func(a, b int32) int32
	i64  func(a, b int64) int64
}

var (
	addKernel = binaryKernel{
		name: "add",
		f32:  func(a, b float32) float32 { return a + b },
		f64:  func(a, b float64) float64 { return a + b },
		i32:  func(a, b int32) int32 { return a + b },
		i64:  func(a, b int64) int64 { return a + b },
	}
	subKernel = binaryKernel{
		name: "sub",
		f32:  func(a, b float32) float32 { return a - b },
		f64:  func(a, b float64) float64 { return a - b },
		i32:  func(a, b int32) int32 { return a - b },
		i64:  func(a, b int64) int64 { return a - b },
	}
	mulKernel = binaryKernel{
		name: "mul",
		f32:  func(a, b float32) float32 { return a * b },
		f64:  func(a, b float64) float64 { return a * b },
		i32:  func(a, b int32) int32 { return a * b },
		i64:  func(a, b int64) int64 { return a * b },
	}
	divKernel = binaryKernel{
		name: "div",
		f32:  func(a, b float32) float32 { return a / b },
		f64:  func(a, b float64) float64 { return a / b },
		i32:  func(a, b int32) int32 { return a / b },
		i64:  func(a, b int64) int64 { return a / b },
	}
)

// binaryInplace computes a[i] = f(a[i], b[i]).
// Requires: a.Shape().Equal(b.Shape()) && a.IsUnique().
func binaryInplace(a, b *tensor.RawTensor, k binaryKernel) {
	switch a.DType() {
	case tensor.Float32:
		inplaceLoop(a.AsFloat32(), b.AsFloat32(), k.f32)
	case tensor.Float64:
		inplaceLoop(a.AsFloat64(), b.AsFloat64(), k.f64)
	case tensor.Int32:
		inplaceLoop(a.AsInt32(), b.AsInt32(), k.i32)
	case tensor.Int64:
		inplaceLoop(a.AsInt64(), b.AsInt64(), k.i64)
	default:
		panic(k.name + ": unsupported dtype " + a.DType().String())
	}
}

// binaryVectorized computes result[i] = f(a[i], b[i]) for equal shapes.
func binaryVectorized(result, a, b *tensor.RawTensor, k binaryKernel) {
	switch a.DType() {
	case tensor.Float32:
		vectorizedLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), k.f32)
	case tensor.Float64:
		vectorizedLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), k.f64)
	case tensor.Int32:
		vectorizedLoop(result.AsInt32(), a.AsInt32(), b.AsInt32(), k.i32)
	case tensor.Int64:
		vectorizedLoop(result.AsInt64(), a.AsInt64(), b.AsInt64(), k.i64)
	default:
		panic(k.name + ": unsupported dtype " + a.DType().String())
	}
}

// binaryBroadcast computes result = f(a, b) with NumPy-style broadcasting.
func binaryBroadcast(result, a, b *tensor.RawTensor, outShape tensor.Shape, k binaryKernel) {
	switch a.DType() {
	case tensor.Float32:
		broadcastLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, k.f32)
	case tensor.Float64:
		broadcastLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, k.f64)
	case tensor.Int32:
		broadcastLoop(result.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape, k.i32)
	case tensor.Int64:
		broadcastLoop(result.AsInt64(), a.AsInt64(), b.AsInt64(), a.Shape(), b.Shape(), outShape, k.i64)
	default:
		panic(k.name + ": unsupported dtype " + a.DType().String())
	}
}

func inplaceLoop[T number](a, b []T, f func(T, T) T) {
	for i := range a {
		a[i] = f(a[i], b[i])
	}
}

func vectorizedLoop[T number](dst, a, b []T, f func(T, T) T) {
	for i := range dst {
		dst[i] = f(a[i], b[i])
	}
}

// broadcastStrides maps a shape onto the output shape, padding missing leading
// dimensions and zeroing the stride of broadcast (size-1) dimensions.
func broadcastStrides(shape, out tensor.Shape) []int {
	strides := make([]int, len(out))
	src := shape.ComputeStrides()
	offset := len(out) - len(shape)
	for i := range out {
		if i < offset {
			continue // Missing leading dim, stride 0
		}
		if shape[i-offset] == 1 && out[i] != 1 {
			continue // Broadcast dim, stride 0
		}
		strides[i] = src[i-offset]
	}
	return strides
}

// broadcastLoop walks the output in row-major order, maintaining source
// offsets incrementally instead of recomputing the index decomposition per
// element.
func broadcastLoop[T number](dst, a, b []T, aShape, bShape, out tensor.Shape, f func(T, T) T) {
	as := broadcastStrides(aShape, out)
	bs := broadcastStrides(bShape, out)
	coords := make([]int, len(out))

	ai, bi := 0, 0
	for i := range dst {
		dst[i] = f(a[ai], b[bi])
		for d := len(out) - 1; d >= 0; d-- {
			coords[d]++
			ai += as[d]
			bi += bs[d]
			if coords[d] < out[d] {
				break
			}
			coords[d] = 0
			ai -= as[d] * out[d]
			bi -= bs[d] * out[d]
		}
	}
}

func transposeData(result, src *tensor.RawTensor, axes []int) {
	switch src.DType() {
	case tensor.Float32:
		transposeLoop(result.AsFloat32(), src.AsFloat32(), src.Shape(), axes)
	case tensor.Float64:
		transposeLoop(result.AsFloat64(), src.AsFloat64(), src.Shape(), axes)
	case tensor.Int32:
		transposeLoop(result.AsInt32(), src.AsInt32(), src.Shape(), axes)
	case tensor.Int64:
		transposeLoop(result.AsInt64(), src.AsInt64(), src.Shape(), axes)
	default:
		panic("transpose: unsupported dtype " + src.DType().String())
	}
}

func transposeLoop[T number](dst, src []T, srcShape tensor.Shape, axes []int) {
	ndim := len(srcShape)
	srcStrides := srcShape.ComputeStrides()

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = srcShape[ax]
	}

	coords := make([]int, ndim)
	srcIdx := 0
	for i := range dst {
		dst[i] = src[srcIdx]
		for d := ndim - 1; d >= 0; d-- {
			coords[d]++
			srcIdx += srcStrides[axes[d]]
			if coords[d] < outShape[d] {
				break
			}
			coords[d] = 0
			srcIdx -= srcStrides[axes[d]] * outShape[d]
		}
	}
}
