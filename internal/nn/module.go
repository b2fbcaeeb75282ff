// Package nn implements the neural network building blocks used by the
// siamese training models.
//
// Building blocks:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable parameters with gradient tracking
//   - Linear: fully connected layer
//   - BatchNorm1d: batch normalization with running statistics
//   - ReLU activation
//   - Sequential: container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/winter1pm/simsiam/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into larger architectures:
//
//	mlp := nn.NewSequential(
//	    nn.NewLinear(2048, 2048, backend),
//	    nn.NewBatchNorm1d(2048, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(2048, 256, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	// Linear-style modules expect [batch_size, features].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module, including
	// nested module parameters. Modules without trainable parameters return
	// an empty slice.
	Parameters() []*Parameter[B]
}

// TrainableModule is implemented by modules whose forward pass differs
// between training and evaluation (e.g. BatchNorm1d).
type TrainableModule interface {
	SetTraining(training bool)
}
