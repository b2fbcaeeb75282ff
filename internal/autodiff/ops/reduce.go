package ops

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// SumOp records output = sum(input), a single-element tensor.
// Backward: the scalar gradient is broadcast to the input shape.
type SumOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	input := op.inputs[0]

	var value float64
	switch outputGrad.DType() {
	case tensor.Float32:
		value = float64(outputGrad.AsFloat32()[0])
	case tensor.Float64:
		value = outputGrad.AsFloat64()[0]
	default:
		panic(fmt.Sprintf("sum backward: unsupported dtype %s", outputGrad.DType()))
	}

	return []*tensor.RawTensor{fillValue(input.Shape(), input.DType(), input.Device(), value)}
}

func (op *SumOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *SumOp) Output() *tensor.RawTensor   { return op.output }

// SumDimOp records output = sum(input, dim).
// Backward: the gradient is repeated along the reduced dimension.
type SumDimOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int // Normalized (non-negative)
}

// NewSumDimOp creates a new SumDimOp. dim must already be normalized.
func NewSumDimOp(input, output *tensor.RawTensor, dim int) *SumDimOp {
	return &SumDimOp{inputs: []*tensor.RawTensor{input}, output: output, dim: dim}
}

func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{expandDim(outputGrad, op.inputs[0], op.dim, 1.0)}
}

func (op *SumDimOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *SumDimOp) Output() *tensor.RawTensor   { return op.output }

// MeanDimOp records output = mean(input, dim).
// Backward: the gradient is repeated along the reduced dimension and scaled
// by 1/size.
type MeanDimOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int // Normalized (non-negative)
}

// NewMeanDimOp creates a new MeanDimOp. dim must already be normalized.
func NewMeanDimOp(input, output *tensor.RawTensor, dim int) *MeanDimOp {
	return &MeanDimOp{inputs: []*tensor.RawTensor{input}, output: output, dim: dim}
}

func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	size := op.inputs[0].Shape()[op.dim]
	return []*tensor.RawTensor{expandDim(outputGrad, op.inputs[0], op.dim, 1.0/float64(size))}
}

func (op *MeanDimOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *MeanDimOp) Output() *tensor.RawTensor   { return op.output }

// expandDim repeats a reduced gradient along dim to fill the input's shape,
// scaling each element by scale. Works for both keepDim variants since only
// the element count per (outer, inner) slot matters.
func expandDim(grad, input *tensor.RawTensor, dim int, scale float64) *tensor.RawTensor {
	shape := input.Shape()

	result, err := tensor.NewRaw(shape, input.DType(), input.Device())
	if err != nil {
		panic(fmt.Sprintf("reduce backward: %v", err))
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	size := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	switch input.DType() {
	case tensor.Float32:
		expandDimLoop(result.AsFloat32(), grad.AsFloat32(), outer, size, inner, float32(scale))
	case tensor.Float64:
		expandDimLoop(result.AsFloat64(), grad.AsFloat64(), outer, size, inner, scale)
	default:
		panic(fmt.Sprintf("reduce backward: unsupported dtype %s", input.DType()))
	}

	return result
}

func expandDimLoop[T ~float32 | ~float64](dst, grad []T, outer, size, inner int, scale T) {
	for o := 0; o < outer; o++ {
		base := o * size * inner
		for in := 0; in < inner; in++ {
			g := grad[o*inner+in] * scale
			for s := 0; s < size; s++ {
				dst[base+s*inner+in] = g
			}
		}
	}
}
