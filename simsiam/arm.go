// Package simsiam implements the SimSiam self-supervised training routine:
// two identically shaped network arms, a negative cosine similarity loss
// applied symmetrically across two augmented views, and a target arm
// refreshed by full weight copy after every training step.
//
// Reference: "Exploring Simple Siamese Representation Learning"
// (Chen & He, 2020)
package simsiam

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/nn"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// ArmConfig sizes the three stages of a SiameseArm. Zero fields fall back
// to defaults proportioned for small image inputs.
type ArmConfig struct {
	InputDim        int // Flattened input size (channels * height * width)
	EncoderHidden   int // Default 512
	EncoderOut      int // Default 512
	ProjectorHidden int // Default 512
	ProjectionDim   int // Default 128
	PredictorHidden int // Default 64, the predictor bottleneck
}

func (c ArmConfig) withDefaults() ArmConfig {
	if c.EncoderHidden == 0 {
		c.EncoderHidden = 512
	}
	if c.EncoderOut == 0 {
		c.EncoderOut = 512
	}
	if c.ProjectorHidden == 0 {
		c.ProjectorHidden = 512
	}
	if c.ProjectionDim == 0 {
		c.ProjectionDim = 128
	}
	if c.PredictorHidden == 0 {
		c.PredictorHidden = 64
	}
	return c
}

// SiameseArm is one arm of the siamese pair: encoder → projector →
// predictor. The online and target arms share this structure; only the
// online arm's parameters are ever optimized.
//
// Stages:
//   - encoder: MLP over the flattened input, produces the embedding y
//   - projector: Linear-BN-ReLU-Linear-BN, produces the projection z
//   - predictor: Linear-BN-ReLU-Linear bottleneck, produces the prediction h
type SiameseArm[B tensor.Backend] struct {
	encoder   *nn.Sequential[B]
	projector *nn.Sequential[B]
	predictor *nn.Sequential[B]
	norms     []*nn.BatchNorm1d[B] // For running stats transfer
	config    ArmConfig
}

// NewSiameseArm creates an arm with freshly initialized weights.
func NewSiameseArm[B tensor.Backend](config ArmConfig, backend B) *SiameseArm[B] {
	if config.InputDim <= 0 {
		panic(fmt.Sprintf("siamese arm: input dim must be positive, got %d", config.InputDim))
	}
	cfg := config.withDefaults()

	encBN := nn.NewBatchNorm1d(cfg.EncoderHidden, backend)
	encoder := nn.NewSequential[B](
		nn.NewLinear(cfg.InputDim, cfg.EncoderHidden, backend),
		encBN,
		nn.NewReLU[B](),
		nn.NewLinear(cfg.EncoderHidden, cfg.EncoderOut, backend),
	)

	projBN1 := nn.NewBatchNorm1d(cfg.ProjectorHidden, backend)
	projBN2 := nn.NewBatchNorm1d(cfg.ProjectionDim, backend)
	projector := nn.NewSequential[B](
		nn.NewLinearNoBias(cfg.EncoderOut, cfg.ProjectorHidden, backend),
		projBN1,
		nn.NewReLU[B](),
		nn.NewLinearNoBias(cfg.ProjectorHidden, cfg.ProjectionDim, backend),
		projBN2,
	)

	predBN := nn.NewBatchNorm1d(cfg.PredictorHidden, backend)
	predictor := nn.NewSequential[B](
		nn.NewLinearNoBias(cfg.ProjectionDim, cfg.PredictorHidden, backend),
		predBN,
		nn.NewReLU[B](),
		nn.NewLinear(cfg.PredictorHidden, cfg.ProjectionDim, backend),
	)

	return &SiameseArm[B]{
		encoder:   encoder,
		projector: projector,
		predictor: predictor,
		norms:     []*nn.BatchNorm1d[B]{encBN, projBN1, projBN2, predBN},
		config:    cfg,
	}
}

// Forward runs the full arm.
// Returns the embedding y, the projection z, and the prediction h.
func (a *SiameseArm[B]) Forward(x *tensor.Tensor[float32, B]) (y, z, h *tensor.Tensor[float32, B]) {
	y = a.encoder.Forward(x)
	z = a.projector.Forward(y)
	h = a.predictor.Forward(z)
	return y, z, h
}

// Parameters returns all trainable parameters of the arm.
func (a *SiameseArm[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, a.encoder.Parameters()...)
	params = append(params, a.projector.Parameters()...)
	params = append(params, a.predictor.Parameters()...)
	return params
}

// SetTraining switches all stages between training and evaluation mode.
func (a *SiameseArm[B]) SetTraining(training bool) {
	a.encoder.SetTraining(training)
	a.projector.SetTraining(training)
	a.predictor.SetTraining(training)
}

// CopyWeightsFrom snapshots every parameter value and batch norm running
// statistic of src into this arm. The snapshot shares no memory with src:
// subsequent optimizer updates to src do not leak through.
func (a *SiameseArm[B]) CopyWeightsFrom(src *SiameseArm[B]) {
	dstParams := a.Parameters()
	srcParams := src.Parameters()
	if len(dstParams) != len(srcParams) {
		panic(fmt.Sprintf("siamese arm: parameter count mismatch %d vs %d", len(dstParams), len(srcParams)))
	}
	for i, p := range dstParams {
		p.CopyFrom(srcParams[i])
	}
	for i, bn := range a.norms {
		bn.CopyStatsFrom(src.norms[i])
	}
}

// Config returns the resolved arm configuration.
func (a *SiameseArm[B]) Config() ArmConfig {
	return a.config
}
