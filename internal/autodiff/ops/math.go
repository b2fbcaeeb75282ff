package ops

import "github.com/winter1pm/simsiam/internal/tensor"

// ExpOp records output = exp(input).
// Backward: grad = outputGrad * output.
type ExpOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpOp creates a new ExpOp.
func NewExpOp(input, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

func (op *ExpOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *ExpOp) Output() *tensor.RawTensor   { return op.output }

// LogOp records output = log(input).
// Backward: grad = outputGrad / input.
type LogOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewLogOp creates a new LogOp.
func NewLogOp(input, output *tensor.RawTensor) *LogOp {
	return &LogOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *LogOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(outputGrad, op.inputs[0])}
}

func (op *LogOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *LogOp) Output() *tensor.RawTensor   { return op.output }

// SqrtOp records output = sqrt(input).
// Backward: grad = outputGrad / (2 * output).
type SqrtOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSqrtOp creates a new SqrtOp.
func NewSqrtOp(input, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	twice := scaleGrad(op.output, 2.0, backend)
	return []*tensor.RawTensor{backend.Div(outputGrad, twice)}
}

func (op *SqrtOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *SqrtOp) Output() *tensor.RawTensor   { return op.output }

// RsqrtOp records output = 1/sqrt(input).
// Backward: grad = outputGrad * (-0.5 * output³).
type RsqrtOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewRsqrtOp creates a new RsqrtOp.
func NewRsqrtOp(input, output *tensor.RawTensor) *RsqrtOp {
	return &RsqrtOp{inputs: []*tensor.RawTensor{input}, output: output}
}

func (op *RsqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	cubed := backend.Mul(backend.Mul(op.output, op.output), op.output)
	return []*tensor.RawTensor{backend.Mul(outputGrad, scaleGrad(cubed, -0.5, backend))}
}

func (op *RsqrtOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *RsqrtOp) Output() *tensor.RawTensor   { return op.output }
