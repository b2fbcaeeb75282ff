package simsiam

import (
	"errors"

	"github.com/winter1pm/simsiam/internal/autodiff"
	"github.com/winter1pm/simsiam/internal/nn"
	"github.com/winter1pm/simsiam/internal/optim"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// Channels in the supported image datasets (RGB).
const numChannels = 3

// Hyperparameters configures a SimSiam model. The zero values of the
// optional fields resolve to the published defaults; NumClasses has no
// default and must be set by the caller.
type Hyperparameters struct {
	NumClasses   int     // Required
	LearningRate float32 // Default 0.2
	WeightDecay  float32 // Default 1.5e-6
	InputHeight  int     // Default 32
	BatchSize    int     // Default 32
	NumWorkers   int     // Default 0
	WarmupEpochs int     // Default 10
	MaxEpochs    int     // Default 1000
}

// WithDefaults returns a copy with unset optional fields resolved.
func (h Hyperparameters) WithDefaults() Hyperparameters {
	if h.LearningRate == 0 {
		h.LearningRate = 0.2
	}
	if h.WeightDecay == 0 {
		h.WeightDecay = 1.5e-6
	}
	if h.InputHeight == 0 {
		h.InputHeight = 32
	}
	if h.BatchSize == 0 {
		h.BatchSize = 32
	}
	if h.WarmupEpochs == 0 {
		h.WarmupEpochs = 10
	}
	if h.MaxEpochs == 0 {
		h.MaxEpochs = 1000
	}
	return h
}

// ErrNumClassesRequired is returned by New when NumClasses is unset.
var ErrNumClassesRequired = errors.New("simsiam: NumClasses is required")

// MetricSink receives the per-step metric values emitted by the training
// and validation steps.
type MetricSink interface {
	LogDict(metrics map[string]float64)
}

// SimSiam holds the online and target arms and implements the symmetric
// negative cosine similarity training objective.
//
// The target arm is a full value copy of the online arm, refreshed after
// every training batch (not an exponential moving average). Only the online
// arm's parameters receive gradients.
type SimSiam[B autodiff.BackwardCapable] struct {
	hparams Hyperparameters
	online  *SiameseArm[B]
	target  *SiameseArm[B]
	backend B
	sink    MetricSink
}

// New creates a SimSiam model. The target arm starts as a deep copy of the
// freshly initialized online arm.
func New[B autodiff.BackwardCapable](hparams Hyperparameters, backend B) (*SimSiam[B], error) {
	if hparams.NumClasses <= 0 {
		return nil, ErrNumClassesRequired
	}
	hp := hparams.WithDefaults()

	armCfg := ArmConfig{InputDim: numChannels * hp.InputHeight * hp.InputHeight}
	online := NewSiameseArm(armCfg, backend)
	target := NewSiameseArm(armCfg, backend)
	target.CopyWeightsFrom(online)

	return &SimSiam[B]{
		hparams: hp,
		online:  online,
		target:  target,
		backend: backend,
	}, nil
}

// Hyperparameters returns the resolved hyperparameters.
func (m *SimSiam[B]) Hyperparameters() Hyperparameters {
	return m.hparams
}

// OnlineArm returns the online (optimized) arm.
func (m *SimSiam[B]) OnlineArm() *SiameseArm[B] {
	return m.online
}

// TargetArm returns the target arm.
func (m *SimSiam[B]) TargetArm() *SiameseArm[B] {
	return m.target
}

// SetMetricSink attaches a sink for the per-step loss metrics.
func (m *SimSiam[B]) SetMetricSink(sink MetricSink) {
	m.sink = sink
}

// SetTraining switches both arms between training and evaluation mode.
func (m *SimSiam[B]) SetTraining(training bool) {
	m.online.SetTraining(training)
	m.target.SetTraining(training)
}

// RefreshTarget replaces every target arm value with a snapshot of the
// online arm. Called after each training batch.
func (m *SimSiam[B]) RefreshTarget() {
	m.target.CopyWeightsFrom(m.online)
}

// Forward returns the online arm's embedding for x, the representation used
// by downstream evaluation.
func (m *SimSiam[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	y, _, _ := m.online.Forward(x)
	return y
}

// CosineSimilarity L2-normalizes both inputs along the feature dimension,
// multiplies them element-wise, sums over features and averages over the
// batch. Returns a single-element tensor.
func (m *SimSiam[B]) CosineSimilarity(a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	aNorm := l2Normalize(a)
	bNorm := l2Normalize(b)
	return aNorm.Mul(bNorm).SumDim(-1, false).MeanDim(0, false)
}

// normEps guards the normalization against zero vectors, matching the
// torch.nn.functional.normalize epsilon.
const normEps float32 = 1e-12

func l2Normalize[B tensor.Backend](t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	norm := t.Mul(t).SumDim(-1, true).Sqrt().AddScalar(normEps)
	return t.Div(norm)
}

// SharedStep computes the symmetric loss for a pair of augmented views.
//
// Each direction runs one view through the online arm and the other through
// the target arm with the tape paused, then takes the negative cosine
// similarity between the online prediction and the detached target
// projection. The total is the sum of both directions.
func (m *SimSiam[B]) SharedStep(view1, view2 *tensor.Tensor[float32, B]) (lossA, lossB, total *tensor.Tensor[float32, B]) {
	lossA = m.directionLoss(view1, view2)
	lossB = m.directionLoss(view2, view1)
	total = lossA.Add(lossB)
	return lossA, lossB, total
}

// directionLoss computes -cos(h_online(a), stopgrad(z_target(b))).
func (m *SimSiam[B]) directionLoss(a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	_, _, h := m.online.Forward(a)

	tape := m.backend.GetTape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	_, zTarget, _ := m.target.Forward(b)
	if wasRecording {
		tape.StartRecording()
	}

	return m.CosineSimilarity(h, zTarget.Detach()).MulScalar(-1)
}

// TrainingStep computes the symmetric loss for a training batch and logs
// the per-direction and total values. Returns the total loss for backward.
func (m *SimSiam[B]) TrainingStep(view1, view2 *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	lossA, lossB, total := m.SharedStep(view1, view2)
	m.logLosses(lossA, lossB, total)
	return total
}

// ValidationStep computes the symmetric loss for a validation batch.
// The metric names match the training phase; the logger carries the phase.
func (m *SimSiam[B]) ValidationStep(view1, view2 *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	lossA, lossB, total := m.SharedStep(view1, view2)
	m.logLosses(lossA, lossB, total)
	return total
}

func (m *SimSiam[B]) logLosses(lossA, lossB, total *tensor.Tensor[float32, B]) {
	if m.sink == nil {
		return
	}
	m.sink.LogDict(map[string]float64{
		"1_2_loss":   float64(lossA.Item()),
		"2_1_loss":   float64(lossB.Item()),
		"train_loss": float64(total.Item()),
	})
}

// ConfigureOptimizers builds the optimizer/schedule pair for this model:
// Adam over the online arm's parameters wrapped in LARS, with linear warmup
// into cosine annealing stepped once per epoch. Weight decay is applied by
// the LARS wrapper, so the base Adam carries none.
func (m *SimSiam[B]) ConfigureOptimizers() (optim.Optimizer, optim.Schedule) {
	params := m.online.Parameters()

	adam := optim.NewAdam(params, optim.AdamConfig{LR: m.hparams.LearningRate}, m.backend)
	lars := optim.NewLARS(adam, params, m.hparams.WeightDecay)

	schedule := &optim.LinearWarmupCosineAnnealing{
		BaseLR:       m.hparams.LearningRate,
		WarmupEpochs: m.hparams.WarmupEpochs,
		MaxEpochs:    m.hparams.MaxEpochs,
	}
	return lars, schedule
}

// Parameters returns the online arm's trainable parameters.
func (m *SimSiam[B]) Parameters() []*nn.Parameter[B] {
	return m.online.Parameters()
}
