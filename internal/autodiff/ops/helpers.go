package ops

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target input shape.
// Needed when broadcasting expanded an input during the forward pass: the
// gradient is summed along each broadcast dimension.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone when shapes already match so inplace accumulation cannot alias
	// the recorded gradient.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// Broadcasting aligns shapes from the right: first fold away the extra
	// leading dimensions, then sum where the target is 1.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	for i, d := range targetShape {
		if d == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// fillValue creates a tensor of the given shape filled with a constant.
func fillValue(shape tensor.Shape, dtype tensor.DataType, device tensor.Device, value float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("fill: %v", err))
	}

	switch dtype {
	case tensor.Float32:
		data := result.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case tensor.Float64:
		data := result.AsFloat64()
		for i := range data {
			data[i] = value
		}
	default:
		panic(fmt.Sprintf("fill: unsupported dtype %s", dtype))
	}

	return result
}

// negate returns -grad.
func negate(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	zeros, err := tensor.NewRaw(grad.Shape(), grad.DType(), grad.Device())
	if err != nil {
		panic(fmt.Sprintf("negate: %v", err))
	}
	return backend.Sub(zeros, grad)
}

// scalarAsFloat converts a recorded scalar operand to float64 for backward
// arithmetic.
func scalarAsFloat(scalar any) float64 {
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
		panic(fmt.Sprintf("scalar: cannot convert %T to float", scalar))
	}
}
