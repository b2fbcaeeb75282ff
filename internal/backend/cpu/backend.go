// Package cpu implements the pure-Go CPU backend with goroutine parallelism.
package cpu

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"

	"github.com/winter1pm/simsiam/internal/parallel"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// CPUBackend implements tensor operations on CPU. Kernels are parallelized
// with goroutine chunking tuned from the detected CPU topology.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
	brand  string
}

// New creates a new CPU backend tuned for the host processor.
func New() *CPUBackend {
	cfg := parallel.DefaultConfig()
	if n := cpuid.CPU.LogicalCores; n > 0 {
		cfg.NumWorkers = n
		cfg.Enabled = n > 1
	}
	// Wider vector units amortize goroutine overhead later.
	if cpuid.CPU.Supports(cpuid.AVX2) || cpuid.CPU.Supports(cpuid.AVX512F) {
		cfg.MinChunkSize = 256
	}

	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "unknown"
	}

	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
		brand:  brand,
	}
}

// Name returns the backend name with the detected processor brand.
func (cpu *CPUBackend) Name() string {
	return fmt.Sprintf("CPU (%s)", cpu.brand)
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, addKernel)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, subKernel)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, mulKernel)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, divKernel)
}

// binary dispatches an element-wise binary operation, choosing between the
// inplace fast path (same shapes, unique buffer), the vectorized path (same
// shapes), and the broadcasting path.
func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, k binaryKernel) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			binaryInplace(a, b, k)
			return a
		}
		result := mustNewRaw(name, outShape, a.DType(), cpu.device)
		binaryVectorized(result, a, b, k)
		return result
	}

	result := mustNewRaw(name, outShape, a.DType(), cpu.device)
	binaryBroadcast(result, a, b, outShape, k)
	return result
}

// Reshape returns a tensor with the same data but different shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result := mustNewRaw("reshape", newShape, t.DType(), t.Device())
	copy(result.Data(), t.Data())
	return result
}

// Transpose transposes the tensor by permuting its dimensions.
// With no axes given, all dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result := mustNewRaw("transpose", newShape, t.DType(), t.Device())
	transposeData(result, t, axes)
	return result
}

func mustNewRaw(op string, shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return raw
}
