package ops

import "github.com/winter1pm/simsiam/internal/tensor"

// MulScalarOp records output = input * s.
// Backward: grad = outputGrad * s.
type MulScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(input, output *tensor.RawTensor, scalar any) *MulScalarOp {
	return &MulScalarOp{inputs: []*tensor.RawTensor{input}, output: output, scalar: scalar}
}

func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	s := scalarAsFloat(op.scalar)
	return []*tensor.RawTensor{scaleGrad(outputGrad, s, backend)}
}

func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *MulScalarOp) Output() *tensor.RawTensor   { return op.output }

// AddScalarOp records output = input + s.
// Backward: the gradient passes through unchanged.
type AddScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddScalarOp creates a new AddScalarOp.
func NewAddScalarOp(input, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

func (op *AddScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *AddScalarOp) Output() *tensor.RawTensor   { return op.output }

// SubScalarOp records output = input - s.
// Backward: the gradient passes through unchanged.
type SubScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSubScalarOp creates a new SubScalarOp.
func NewSubScalarOp(input, output *tensor.RawTensor) *SubScalarOp {
	return &SubScalarOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *SubScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

func (op *SubScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *SubScalarOp) Output() *tensor.RawTensor   { return op.output }

// DivScalarOp records output = input / s.
// Backward: grad = outputGrad / s.
type DivScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

// NewDivScalarOp creates a new DivScalarOp.
func NewDivScalarOp(input, output *tensor.RawTensor, scalar any) *DivScalarOp {
	return &DivScalarOp{inputs: []*tensor.RawTensor{input}, output: output, scalar: scalar}
}

func (op *DivScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	s := scalarAsFloat(op.scalar)
	return []*tensor.RawTensor{scaleGrad(outputGrad, 1.0/s, backend)}
}

func (op *DivScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *DivScalarOp) Output() *tensor.RawTensor   { return op.output }

// scaleGrad multiplies a gradient by a constant, matching the gradient's
// dtype.
func scaleGrad(grad *tensor.RawTensor, s float64, backend tensor.Backend) *tensor.RawTensor {
	switch grad.DType() {
	case tensor.Float32:
		return backend.MulScalar(grad, float32(s))
	default:
		return backend.MulScalar(grad, s)
	}
}
