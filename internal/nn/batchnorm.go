package nn

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// BatchNorm1d applies batch normalization over a 2D input
// [batch_size, num_features].
//
// Training mode normalizes with the batch statistics and updates the running
// mean and variance with exponential momentum. Evaluation mode normalizes
// with the accumulated running statistics.
//
// Formula: y = gamma * (x - mean) / sqrt(var + eps) + beta
type BatchNorm1d[B tensor.Backend] struct {
	Gamma *Parameter[B] // Learnable scale [num_features]
	Beta  *Parameter[B] // Learnable shift [num_features]

	runningMean *tensor.Tensor[float32, B] // Not trainable
	runningVar  *tensor.Tensor[float32, B] // Not trainable

	numFeatures int
	epsilon     float32
	momentum    float32
	training    bool
	backend     B
}

// NewBatchNorm1d creates a BatchNorm1d layer with the PyTorch defaults
// (eps=1e-5, momentum=0.1). Gamma starts at ones, beta at zeros, the running
// variance at ones. The layer starts in training mode.
func NewBatchNorm1d[B tensor.Backend](numFeatures int, backend B) *BatchNorm1d[B] {
	return &BatchNorm1d[B]{
		Gamma:       NewParameter("gamma", Ones(tensor.Shape{numFeatures}, backend)),
		Beta:        NewParameter("beta", Zeros(tensor.Shape{numFeatures}, backend)),
		runningMean: Zeros[B](tensor.Shape{numFeatures}, backend),
		runningVar:  Ones[B](tensor.Shape{numFeatures}, backend),
		numFeatures: numFeatures,
		epsilon:     1e-5,
		momentum:    0.1,
		training:    true,
		backend:     backend,
	}
}

// SetTraining switches between training and evaluation mode.
func (bn *BatchNorm1d[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer is in training mode.
func (bn *BatchNorm1d[B]) Training() bool {
	return bn.training
}

// Forward normalizes the input.
//
// Training:
//  1. mean, var over the batch dimension
//  2. y = gamma * (x - mean) / sqrt(var + eps) + beta
//  3. running stats updated with momentum (outside the autodiff graph)
//
// Evaluation: same formula with the running statistics.
func (bn *BatchNorm1d[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("BatchNorm1d.Forward: expected 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("BatchNorm1d.Forward: expected %d features, got %d", bn.numFeatures, shape[1]))
	}

	var mean, variance *tensor.Tensor[float32, B]
	if bn.training {
		mean = x.MeanDim(0, true) // [1, features]
		xCentered := x.Sub(mean)
		variance = xCentered.Mul(xCentered).MeanDim(0, true) // Biased, for normalization

		bn.updateRunningStats(mean, variance, shape[0])
	} else {
		mean = bn.runningMean.Reshape(1, bn.numFeatures)
		variance = bn.runningVar.Reshape(1, bn.numFeatures)
	}

	eps := tensor.Full[float32](variance.Shape(), bn.epsilon, bn.backend)
	invStd := variance.Add(eps).Rsqrt()
	xNorm := x.Sub(mean).Mul(invStd)

	gamma := bn.Gamma.Tensor().Reshape(1, bn.numFeatures)
	beta := bn.Beta.Tensor().Reshape(1, bn.numFeatures)
	return xNorm.Mul(gamma).Add(beta)
}

// updateRunningStats folds the batch statistics into the running buffers.
// Done with direct value arithmetic so the update never lands on the tape.
// The running variance uses the unbiased estimate, matching PyTorch.
func (bn *BatchNorm1d[B]) updateRunningStats(mean, variance *tensor.Tensor[float32, B], batchSize int) {
	m := bn.momentum
	meanData := mean.Raw().AsFloat32()
	varData := variance.Raw().AsFloat32()

	unbias := float32(1)
	if batchSize > 1 {
		unbias = float32(batchSize) / float32(batchSize-1)
	}

	rm := bn.runningMean.Data()
	rv := bn.runningVar.Data()
	for i := range rm {
		rm[i] = (1-m)*rm[i] + m*meanData[i]
		rv[i] = (1-m)*rv[i] + m*varData[i]*unbias
	}
}

// Parameters returns the learnable parameters (gamma and beta). The running
// statistics are buffers, not parameters, and never receive gradients.
func (bn *BatchNorm1d[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Gamma, bn.Beta}
}

// RunningMean returns the running mean buffer.
func (bn *BatchNorm1d[B]) RunningMean() *tensor.Tensor[float32, B] {
	return bn.runningMean
}

// RunningVar returns the running variance buffer.
func (bn *BatchNorm1d[B]) RunningVar() *tensor.Tensor[float32, B] {
	return bn.runningVar
}

// CopyStatsFrom snapshots the running statistics of src into this layer.
func (bn *BatchNorm1d[B]) CopyStatsFrom(src *BatchNorm1d[B]) {
	bn.runningMean.Raw().CopyFrom(src.runningMean.Raw())
	bn.runningVar.Raw().CopyFrom(src.runningVar.Raw())
}
