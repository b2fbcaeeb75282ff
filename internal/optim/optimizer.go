// Package optim implements the optimization algorithms and learning rate
// schedules used for training.
//
// Provided:
//   - Optimizer interface: base interface for all optimizers
//   - SGD: stochastic gradient descent with momentum
//   - Adam: adaptive moment estimation
//   - LARS: layer-wise adaptive rate scaling, wrapping a base optimizer
//   - LinearWarmupCosineAnnealing: per-epoch learning rate schedule
//
// Design inspired by PyTorch's torch.optim but adapted for Go with type
// safety.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001}, backend)
//
//	for range epochs {
//	    backend.Tape().StartRecording()
//	    loss := model.TrainingStep(batch)
//	    grads := autodiff.Backward(loss, backend)
//	    optimizer.Step(grads)
//	    optimizer.ZeroGrad()
//	    backend.Tape().Clear()
//	}
package optim

import (
	"math"

	"github.com/winter1pm/simsiam/internal/nn"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters, given the gradient
	// map produced by Backward(). Parameters without a gradient are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients. Call before each backward
	// pass to prevent accumulation across iterations.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// LRSettable is implemented by optimizers whose learning rate can be driven
// by a schedule.
type LRSettable interface {
	SetLR(lr float32)
}

// Config is the base configuration shared by optimizers.
type Config struct {
	LR float32
}

// getGradient retrieves the gradient for a parameter, or nil if the
// parameter wasn't part of the recorded computation.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}

// l2Norm computes the Euclidean norm of a float32 tensor.
func l2Norm(t *tensor.RawTensor) float64 {
	var sum float64
	for _, v := range t.AsFloat32() {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
