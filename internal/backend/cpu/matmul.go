package cpu

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/parallel"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Rows of the output are computed in parallel.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions must match: (%d, %d) @ (%d, %d)",
			aShape[0], aShape[1], bShape[0], bShape[1]))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := mustNewRaw("matmul", tensor.Shape{m, n}, a.DType(), cpu.device)

	switch a.DType() {
	case tensor.Float32:
		matmulRows(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.par)
	case tensor.Float64:
		matmulRows(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, cpu.par)
	default:
		panic("matmul: unsupported dtype " + a.DType().String())
	}

	return result
}

// matmulRows computes one output row per task using the ikj loop order, which
// keeps the inner loop streaming over contiguous rows of b.
func matmulRows[T ~float32 | ~float64](dst, a, b []T, m, k, n int, cfg parallel.Config) {
	parallel.ForRows(m, n, func(i int) {
		rowOut := dst[i*n : (i+1)*n]
		rowA := a[i*k : (i+1)*k]
		for kk := 0; kk < k; kk++ {
			aik := rowA[kk]
			if aik == 0 {
				continue
			}
			rowB := b[kk*n : (kk+1)*n]
			for j := range rowOut {
				rowOut[j] += aik * rowB[j]
			}
		}
	}, cfg)
}
