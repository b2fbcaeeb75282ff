package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winter1pm/simsiam/internal/autodiff"
	"github.com/winter1pm/simsiam/internal/backend/cpu"
	"github.com/winter1pm/simsiam/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newTestBackend() testBackend {
	return autodiff.New(cpu.New())
}

func TestLinearForwardShape(t *testing.T) {
	be := newTestBackend()
	layer := NewLinear(8, 4, be)

	input := Randn(tensor.Shape{2, 8}, be)
	output := layer.Forward(input)

	assert.True(t, output.Shape().Equal(tensor.Shape{2, 4}))
	assert.Len(t, layer.Parameters(), 2)
}

func TestLinearNoBias(t *testing.T) {
	be := newTestBackend()
	layer := NewLinearNoBias(8, 4, be)

	assert.Nil(t, layer.Bias())
	assert.Len(t, layer.Parameters(), 1)
}

func TestLinearBiasApplied(t *testing.T) {
	be := newTestBackend()
	layer := NewLinear(2, 2, be)

	// Zero the weight so the output is the bias alone.
	wData := layer.Weight().Tensor().Data()
	for i := range wData {
		wData[i] = 0
	}
	bData := layer.Bias().Tensor().Data()
	bData[0], bData[1] = 1.5, -2.5

	input, err := tensor.FromSlice[float32]([]float32{3, 4}, tensor.Shape{1, 2}, be)
	require.NoError(t, err)

	output := layer.Forward(input)
	assert.InDelta(t, 1.5, output.At(0, 0), 1e-6)
	assert.InDelta(t, -2.5, output.At(0, 1), 1e-6)
}

func TestLinearRejectsWrongFeatureCount(t *testing.T) {
	be := newTestBackend()
	layer := NewLinear(8, 4, be)

	input := Randn(tensor.Shape{2, 5}, be)
	assert.Panics(t, func() { layer.Forward(input) })
}

func TestBatchNormTrainingNormalizes(t *testing.T) {
	be := newTestBackend()
	bn := NewBatchNorm1d(2, be)

	input, err := tensor.FromSlice[float32](
		[]float32{1, 10, 2, 20, 3, 30, 4, 40}, tensor.Shape{4, 2}, be)
	require.NoError(t, err)

	output := bn.Forward(input)
	require.True(t, output.Shape().Equal(tensor.Shape{4, 2}))

	// Per-feature mean ~0 and variance ~1 after normalization.
	for f := 0; f < 2; f++ {
		var mean float64
		for r := 0; r < 4; r++ {
			mean += float64(output.At(r, f))
		}
		mean /= 4
		assert.InDelta(t, 0, mean, 1e-5)

		var variance float64
		for r := 0; r < 4; r++ {
			d := float64(output.At(r, f)) - mean
			variance += d * d
		}
		variance /= 4
		assert.InDelta(t, 1, variance, 1e-3)
	}
}

func TestBatchNormRunningStatsUpdated(t *testing.T) {
	be := newTestBackend()
	bn := NewBatchNorm1d(1, be)

	input, err := tensor.FromSlice[float32]([]float32{2, 4, 6, 8}, tensor.Shape{4, 1}, be)
	require.NoError(t, err)
	bn.Forward(input)

	// Batch mean 5, unbiased var 20/3. Momentum 0.1 from (0, 1) init.
	assert.InDelta(t, 0.5, float64(bn.RunningMean().Data()[0]), 1e-5)
	assert.InDelta(t, 0.9+0.1*20.0/3.0, float64(bn.RunningVar().Data()[0]), 1e-4)
}

func TestBatchNormEvalUsesRunningStats(t *testing.T) {
	be := newTestBackend()
	bn := NewBatchNorm1d(1, be)
	bn.SetTraining(false)

	// With running mean 0 and var 1, eval mode is the identity (up to eps).
	input, err := tensor.FromSlice[float32]([]float32{-1, 0, 3}, tensor.Shape{3, 1}, be)
	require.NoError(t, err)

	output := bn.Forward(input)
	for r, want := range []float64{-1, 0, 3} {
		assert.InDelta(t, want, float64(output.At(r, 0)), 1e-4)
	}

	// Running stats stay frozen in eval mode.
	assert.Equal(t, float32(0), bn.RunningMean().Data()[0])
	assert.Equal(t, float32(1), bn.RunningVar().Data()[0])
}

func TestBatchNormGammaBetaApplied(t *testing.T) {
	be := newTestBackend()
	bn := NewBatchNorm1d(1, be)
	bn.SetTraining(false)

	bn.Gamma.Tensor().Data()[0] = 2
	bn.Beta.Tensor().Data()[0] = 10

	input, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1, 1}, be)
	require.NoError(t, err)

	output := bn.Forward(input)
	assert.InDelta(t, 12, float64(output.At(0, 0)), 1e-3)
}

func TestSequentialForwardAndParams(t *testing.T) {
	be := newTestBackend()
	model := NewSequential[testBackend](
		NewLinear(4, 8, be),
		NewBatchNorm1d(8, be),
		NewReLU[testBackend](),
		NewLinear(8, 2, be),
	)

	input := Randn(tensor.Shape{3, 4}, be)
	output := model.Forward(input)

	assert.True(t, output.Shape().Equal(tensor.Shape{3, 2}))
	// 2 linear layers (weight+bias) + batch norm (gamma+beta).
	assert.Len(t, model.Parameters(), 6)
}

func TestSequentialSetTrainingPropagates(t *testing.T) {
	be := newTestBackend()
	bn := NewBatchNorm1d(4, be)
	model := NewSequential[testBackend](NewLinear(4, 4, be), bn)

	model.SetTraining(false)
	assert.False(t, bn.Training())

	model.SetTraining(true)
	assert.True(t, bn.Training())
}

func TestReLUForward(t *testing.T) {
	be := newTestBackend()
	relu := NewReLU[testBackend]()

	input, err := tensor.FromSlice[float32]([]float32{-2, 0, 3}, tensor.Shape{3}, be)
	require.NoError(t, err)

	output := relu.Forward(input)
	assert.Equal(t, []float32{0, 0, 3}, output.Data())
	assert.Nil(t, relu.Parameters())
}

func TestParameterCopyFromIndependence(t *testing.T) {
	be := newTestBackend()
	src := NewParameter("weight", Randn(tensor.Shape{2, 2}, be))
	dst := NewParameter("weight", Zeros(tensor.Shape{2, 2}, be))

	dst.CopyFrom(src)
	for i, v := range src.Tensor().Data() {
		assert.Equal(t, v, dst.Tensor().Data()[i])
	}

	// Later updates to src must not leak into dst.
	src.Tensor().Data()[0] = float32(math.Pi)
	assert.NotEqual(t, src.Tensor().Data()[0], dst.Tensor().Data()[0])
}

func TestParameterCopyFromShapeMismatchPanics(t *testing.T) {
	be := newTestBackend()
	src := NewParameter("weight", Randn(tensor.Shape{2, 3}, be))
	dst := NewParameter("weight", Zeros(tensor.Shape{3, 2}, be))

	assert.Panics(t, func() { dst.CopyFrom(src) })
}
