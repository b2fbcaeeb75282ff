package simsiam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winter1pm/simsiam/internal/autodiff"
	"github.com/winter1pm/simsiam/internal/backend/cpu"
	"github.com/winter1pm/simsiam/internal/optim"
	"github.com/winter1pm/simsiam/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() testBackend {
	return autodiff.New(cpu.New())
}

// Small arm so the tests stay fast.
var testArmConfig = ArmConfig{
	InputDim:        12,
	EncoderHidden:   8,
	EncoderOut:      8,
	ProjectorHidden: 8,
	ProjectionDim:   4,
	PredictorHidden: 2,
}

func newTestModel(t *testing.T, be testBackend) *SimSiam[testBackend] {
	t.Helper()
	m, err := New[testBackend](Hyperparameters{NumClasses: 10, InputHeight: 2}, be)
	require.NoError(t, err)
	return m
}

type captureSink struct {
	records []map[string]float64
}

func (s *captureSink) LogDict(metrics map[string]float64) {
	s.records = append(s.records, metrics)
}

func TestNewRequiresNumClasses(t *testing.T) {
	be := newBackend()
	_, err := New[testBackend](Hyperparameters{}, be)
	assert.ErrorIs(t, err, ErrNumClassesRequired)
}

func TestHyperparameterDefaults(t *testing.T) {
	hp := Hyperparameters{NumClasses: 10}.WithDefaults()

	assert.Equal(t, float32(0.2), hp.LearningRate)
	assert.Equal(t, float32(1.5e-6), hp.WeightDecay)
	assert.Equal(t, 32, hp.InputHeight)
	assert.Equal(t, 32, hp.BatchSize)
	assert.Equal(t, 0, hp.NumWorkers)
	assert.Equal(t, 10, hp.WarmupEpochs)
	assert.Equal(t, 1000, hp.MaxEpochs)
}

func TestTargetStartsAsCopyOfOnline(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	onlineParams := m.OnlineArm().Parameters()
	targetParams := m.TargetArm().Parameters()
	require.Equal(t, len(onlineParams), len(targetParams))

	for i := range onlineParams {
		assert.Equal(t, onlineParams[i].Tensor().Data(), targetParams[i].Tensor().Data())
		// Values match but buffers must be independent.
		assert.NotSame(t, onlineParams[i].Tensor().Raw(), targetParams[i].Tensor().Raw())
	}
}

func TestRefreshTargetSnapshotsOnline(t *testing.T) {
	be := newBackend()
	online := NewSiameseArm(testArmConfig, be)
	target := NewSiameseArm(testArmConfig, be)
	target.CopyWeightsFrom(online)

	// Perturb online, then refresh; target must follow.
	w := online.Parameters()[0].Tensor().Data()
	w[0] += 1

	target.CopyWeightsFrom(online)
	assert.Equal(t, w[0], target.Parameters()[0].Tensor().Data()[0])

	// Perturbing online after the copy must not leak into the target.
	w[0] += 1
	assert.NotEqual(t, w[0], target.Parameters()[0].Tensor().Data()[0])
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	a, err := tensor.FromSlice[float32]([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, be)
	require.NoError(t, err)

	sim := m.CosineSimilarity(a, a)
	assert.InDelta(t, 1.0, float64(sim.Item()), 1e-5)
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	a, err := tensor.FromSlice[float32]([]float32{1, 0, 0, 1}, tensor.Shape{2, 2}, be)
	require.NoError(t, err)
	b, err := tensor.FromSlice[float32]([]float32{0, 1, 1, 0}, tensor.Shape{2, 2}, be)
	require.NoError(t, err)

	sim := m.CosineSimilarity(a, b)
	assert.InDelta(t, 0.0, float64(sim.Item()), 1e-5)
}

func TestCosineSimilarityNegatedVectors(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	a, err := tensor.FromSlice[float32]([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, be)
	require.NoError(t, err)
	neg := a.MulScalar(-1)

	sim := m.CosineSimilarity(a, neg)
	assert.InDelta(t, -1.0, float64(sim.Item()), 1e-5)
}

func TestCosineSimilarityIsSymmetric(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	a := tensor.Randn[float32](tensor.Shape{4, 8}, be)
	b := tensor.Randn[float32](tensor.Shape{4, 8}, be)

	ab := m.CosineSimilarity(a, b)
	ba := m.CosineSimilarity(b, a)
	assert.InDelta(t, float64(ab.Item()), float64(ba.Item()), 1e-6)
}

func TestSharedStepLossBounds(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	batch := 4
	dim := m.OnlineArm().Config().InputDim
	view1 := tensor.Randn[float32](tensor.Shape{batch, dim}, be)
	view2 := tensor.Randn[float32](tensor.Shape{batch, dim}, be)

	lossA, lossB, total := m.SharedStep(view1, view2)

	// Each direction is a negated mean cosine similarity, so it lies in [-1, 1].
	for _, l := range []float64{float64(lossA.Item()), float64(lossB.Item())} {
		assert.GreaterOrEqual(t, l, -1.0-1e-5)
		assert.LessOrEqual(t, l, 1.0+1e-5)
	}
	assert.InDelta(t, float64(lossA.Item())+float64(lossB.Item()), float64(total.Item()), 1e-5)
}

func TestSharedStepSymmetric(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	dim := m.OnlineArm().Config().InputDim
	view1 := tensor.Randn[float32](tensor.Shape{3, dim}, be)
	view2 := tensor.Randn[float32](tensor.Shape{3, dim}, be)

	// Eval mode so batch norm is deterministic across the two calls.
	m.SetTraining(false)

	_, _, total12 := m.SharedStep(view1, view2)
	_, _, total21 := m.SharedStep(view2, view1)
	assert.InDelta(t, float64(total12.Item()), float64(total21.Item()), 1e-5)
}

func TestIdenticalViewsGiveMinimalLoss(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)
	m.RefreshTarget()
	m.SetTraining(false)

	dim := m.OnlineArm().Config().InputDim
	view := tensor.Randn[float32](tensor.Shape{4, dim}, be)

	// With equal arms and equal views the prediction and projection differ
	// only through the predictor; the loss still has to be a finite value
	// in the objective's range.
	lossA, lossB, total := m.SharedStep(view, view)
	v := float64(total.Item())
	assert.False(t, math.IsNaN(v))
	assert.GreaterOrEqual(t, v, -2.0-1e-5)
	assert.LessOrEqual(t, v, 2.0+1e-5)

	// Degenerate augmentation makes the two directions the same computation.
	assert.InDelta(t, float64(lossA.Item()), float64(lossB.Item()), 1e-5)
}

func TestSharedStepDefaultGeometry(t *testing.T) {
	be := newBackend()
	m, err := New[testBackend](Hyperparameters{NumClasses: 10}, be)
	require.NoError(t, err)

	// Default input geometry: 32x32x3 flattened.
	assert.Equal(t, 3*32*32, m.OnlineArm().Config().InputDim)

	view := tensor.Randn[float32](tensor.Shape{4, 3 * 32 * 32}, be)
	lossA, lossB, total := m.SharedStep(view, view)

	for _, l := range []*tensor.Tensor[float32, testBackend]{lossA, lossB, total} {
		require.Equal(t, 1, l.NumElements())
		assert.False(t, math.IsNaN(float64(l.Item())))
	}
	assert.GreaterOrEqual(t, float64(total.Item()), -2.0-1e-5)
	assert.LessOrEqual(t, float64(total.Item()), 2.0+1e-5)
}

func TestConsecutiveBatchesDivergeTarget(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)
	opt, _ := m.ConfigureOptimizers()

	dim := m.OnlineArm().Config().InputDim
	step := func() {
		view1 := tensor.Randn[float32](tensor.Shape{4, dim}, be)
		view2 := tensor.Randn[float32](tensor.Shape{4, dim}, be)

		be.Tape().Clear()
		be.Tape().StartRecording()
		total := m.TrainingStep(view1, view2)
		grads := autodiff.Backward(total, be)
		be.Tape().StopRecording()
		be.Tape().Clear()

		opt.Step(grads)
		m.RefreshTarget()
	}

	step()
	afterBatch1 := make([]float32, len(m.TargetArm().Parameters()[0].Tensor().Data()))
	copy(afterBatch1, m.TargetArm().Parameters()[0].Tensor().Data())
	assert.Equal(t, m.OnlineArm().Parameters()[0].Tensor().Data(), afterBatch1)

	step()
	afterBatch2 := m.TargetArm().Parameters()[0].Tensor().Data()
	assert.NotEqual(t, afterBatch1, afterBatch2,
		"target did not follow the online update between batches")
	assert.Equal(t, m.OnlineArm().Parameters()[0].Tensor().Data(), afterBatch2)
}

func TestBackwardReachesOnlyOnlineParameters(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	dim := m.OnlineArm().Config().InputDim
	view1 := tensor.Randn[float32](tensor.Shape{4, dim}, be)
	view2 := tensor.Randn[float32](tensor.Shape{4, dim}, be)

	be.Tape().StartRecording()
	total := m.TrainingStep(view1, view2)
	grads := autodiff.Backward(total, be)
	be.Tape().StopRecording()

	var onlineWithGrad int
	for _, p := range m.OnlineArm().Parameters() {
		if grads[p.Tensor().Raw()] != nil {
			onlineWithGrad++
		}
	}
	assert.Greater(t, onlineWithGrad, 0, "no online parameter received a gradient")

	for _, p := range m.TargetArm().Parameters() {
		assert.Nil(t, grads[p.Tensor().Raw()], "target parameter %s received a gradient", p.Name())
	}
}

func TestTrainingStepLogsMetrics(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)
	sink := &captureSink{}
	m.SetMetricSink(sink)

	dim := m.OnlineArm().Config().InputDim
	view1 := tensor.Randn[float32](tensor.Shape{2, dim}, be)
	view2 := tensor.Randn[float32](tensor.Shape{2, dim}, be)

	m.TrainingStep(view1, view2)
	require.Len(t, sink.records, 1)

	rec := sink.records[0]
	require.Contains(t, rec, "1_2_loss")
	require.Contains(t, rec, "2_1_loss")
	require.Contains(t, rec, "train_loss")
	assert.InDelta(t, rec["1_2_loss"]+rec["2_1_loss"], rec["train_loss"], 1e-6)
}

func TestValidationStepLogsSameMetricNames(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)
	sink := &captureSink{}
	m.SetMetricSink(sink)
	m.SetTraining(false)

	dim := m.OnlineArm().Config().InputDim
	view1 := tensor.Randn[float32](tensor.Shape{2, dim}, be)
	view2 := tensor.Randn[float32](tensor.Shape{2, dim}, be)

	m.ValidationStep(view1, view2)
	require.Len(t, sink.records, 1)
	assert.Contains(t, sink.records[0], "1_2_loss")
	assert.Contains(t, sink.records[0], "2_1_loss")
	assert.Contains(t, sink.records[0], "train_loss")
}

func TestForwardReturnsOnlineEmbedding(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	cfg := m.OnlineArm().Config()
	x := tensor.Randn[float32](tensor.Shape{3, cfg.InputDim}, be)

	y := m.Forward(x)
	assert.Equal(t, tensor.Shape{3, cfg.EncoderOut}, y.Shape())
}

func TestConfigureOptimizers(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)

	opt, sched := m.ConfigureOptimizers()
	require.NotNil(t, opt)
	require.NotNil(t, sched)

	assert.InDelta(t, 0.2, float64(opt.GetLR()), 1e-6)

	// Warmup from zero into the base rate, decaying to zero at the end.
	assert.Equal(t, float32(0), sched.LR(0))
	assert.InDelta(t, 0.2, float64(sched.LR(10)), 1e-6)
	assert.Equal(t, float32(0), sched.LR(1000))

	// The pair is live: pushing a schedule value changes the optimizer.
	settable, ok := opt.(optim.LRSettable)
	require.True(t, ok)
	settable.SetLR(sched.LR(0))
	assert.Equal(t, float32(0), opt.GetLR())
}

func TestOptimizerStepChangesOnlineOnly(t *testing.T) {
	be := newBackend()
	m := newTestModel(t, be)
	opt, _ := m.ConfigureOptimizers()

	dim := m.OnlineArm().Config().InputDim
	view1 := tensor.Randn[float32](tensor.Shape{4, dim}, be)
	view2 := tensor.Randn[float32](tensor.Shape{4, dim}, be)

	targetBefore := make([]float32, len(m.TargetArm().Parameters()[0].Tensor().Data()))
	copy(targetBefore, m.TargetArm().Parameters()[0].Tensor().Data())
	onlineBefore := make([]float32, len(m.OnlineArm().Parameters()[0].Tensor().Data()))
	copy(onlineBefore, m.OnlineArm().Parameters()[0].Tensor().Data())

	be.Tape().StartRecording()
	total := m.TrainingStep(view1, view2)
	grads := autodiff.Backward(total, be)
	be.Tape().StopRecording()
	be.Tape().Clear()

	opt.Step(grads)

	assert.NotEqual(t, onlineBefore, m.OnlineArm().Parameters()[0].Tensor().Data(),
		"online parameters did not move")
	assert.Equal(t, targetBefore, m.TargetArm().Parameters()[0].Tensor().Data(),
		"target parameters moved without a refresh")

	// After the refresh the target matches the updated online arm again.
	m.RefreshTarget()
	assert.Equal(t,
		m.OnlineArm().Parameters()[0].Tensor().Data(),
		m.TargetArm().Parameters()[0].Tensor().Data())
}

func TestArmForwardShapes(t *testing.T) {
	be := newBackend()
	arm := NewSiameseArm(testArmConfig, be)

	x := tensor.Randn[float32](tensor.Shape{5, testArmConfig.InputDim}, be)
	y, z, h := arm.Forward(x)

	assert.Equal(t, tensor.Shape{5, testArmConfig.EncoderOut}, y.Shape())
	assert.Equal(t, tensor.Shape{5, testArmConfig.ProjectionDim}, z.Shape())
	assert.Equal(t, tensor.Shape{5, testArmConfig.ProjectionDim}, h.Shape())
}

func TestArmRejectsMissingInputDim(t *testing.T) {
	be := newBackend()
	assert.Panics(t, func() {
		NewSiameseArm(ArmConfig{}, be)
	})
}
