package nn

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
	grad   *tensor.Tensor[float32, B] // Computed during backward pass
}

// NewParameter creates a new trainable parameter. The gradient is allocated
// on the first backward pass.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before the first backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient. Call before each training iteration so
// gradients from previous iterations don't accumulate.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// CopyFrom overwrites this parameter's values with a snapshot of src.
// The buffers stay independent afterwards, so later updates to src do not
// leak through. Shapes must match.
func (p *Parameter[B]) CopyFrom(src *Parameter[B]) {
	if !p.tensor.Shape().Equal(src.tensor.Shape()) {
		panic(fmt.Sprintf("parameter %q: copy shape mismatch %v vs %v",
			p.name, p.tensor.Shape(), src.tensor.Shape()))
	}
	p.tensor.Raw().CopyFrom(src.tensor.Raw())
}
