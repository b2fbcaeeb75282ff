package ops

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// ReLUOp records output = max(0, input).
//
// Backward: the gradient passes through where the input was positive and is
// zeroed elsewhere.
type ReLUOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	input := op.inputs[0]

	grad, err := tensor.NewRaw(input.Shape(), input.DType(), input.Device())
	if err != nil {
		panic(fmt.Sprintf("relu backward: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		in := input.AsFloat32()
		out := outputGrad.AsFloat32()
		dst := grad.AsFloat32()
		for i := range dst {
			if in[i] > 0 {
				dst[i] = out[i]
			}
		}
	case tensor.Float64:
		in := input.AsFloat64()
		out := outputGrad.AsFloat64()
		dst := grad.AsFloat64()
		for i := range dst {
			if in[i] > 0 {
				dst[i] = out[i]
			}
		}
	default:
		panic(fmt.Sprintf("relu backward: unsupported dtype %s", input.DType()))
	}

	return []*tensor.RawTensor{grad}
}

func (op *ReLUOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *ReLUOp) Output() *tensor.RawTensor   { return op.output }
