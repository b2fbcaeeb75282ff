package optim

import (
	"strings"

	"github.com/winter1pm/simsiam/internal/nn"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// LARS implements layer-wise adaptive rate scaling as a wrapper around a
// base optimizer. Before delegating to the base step, each parameter's
// gradient is rescaled by the layer's trust ratio:
//
//	trust = eta * ||param|| / (||grad|| + weight_decay * ||param|| + eps)
//	grad  = (grad + weight_decay * param) * trust
//
// Weight decay is folded into the gradient here, so the wrapped optimizer
// must be constructed without its own decay term.
//
// One-dimensional parameters (biases, normalization scales and shifts) are
// conventionally excluded from both the adaptation and the decay; the
// default exclusion predicate implements that rule.
//
// Reference: "Large Batch Training of Convolutional Networks"
// (You, Gitman & Ginsburg, 2017)
type LARS[B tensor.Backend] struct {
	base        Optimizer
	params      []*nn.Parameter[B]
	eta         float32
	eps         float32
	weightDecay float32
	clip        bool
	exclude     func(*nn.Parameter[B]) bool
}

// LARSConfig holds configuration for the LARS wrapper.
type LARSConfig[B tensor.Backend] struct {
	Eta         float32 // Trust coefficient (default: 0.02)
	Eps         float32 // Numerical stability term (default: 1e-8)
	WeightDecay float32 // L2 penalty folded into the scaled gradient
	Clip        bool    // Clamp trust/lr to at most 1 (default behavior: true via NewLARS)
	// Exclude marks parameters that skip adaptation and decay.
	// Nil selects ExcludeBiasAndNorm.
	Exclude func(*nn.Parameter[B]) bool
}

// NewLARS wraps a base optimizer with layer-wise adaptive rate scaling.
// Clipping is enabled; use NewLARSConfig for full control.
func NewLARS[B tensor.Backend](base Optimizer, params []*nn.Parameter[B], weightDecay float32) *LARS[B] {
	return NewLARSConfig(base, params, LARSConfig[B]{
		WeightDecay: weightDecay,
		Clip:        true,
	})
}

// NewLARSConfig wraps a base optimizer with explicit LARS configuration.
func NewLARSConfig[B tensor.Backend](base Optimizer, params []*nn.Parameter[B], config LARSConfig[B]) *LARS[B] {
	if config.Eta == 0 {
		config.Eta = 0.02
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	if config.Exclude == nil {
		config.Exclude = ExcludeBiasAndNorm[B]
	}

	return &LARS[B]{
		base:        base,
		params:      params,
		eta:         config.Eta,
		eps:         config.Eps,
		weightDecay: config.WeightDecay,
		clip:        config.Clip,
		exclude:     config.Exclude,
	}
}

// ExcludeBiasAndNorm is the default exclusion rule: biases and batch norm
// scale/shift parameters skip LARS adaptation and weight decay.
func ExcludeBiasAndNorm[B tensor.Backend](p *nn.Parameter[B]) bool {
	name := p.Name()
	return strings.HasSuffix(name, "bias") ||
		strings.HasSuffix(name, "gamma") ||
		strings.HasSuffix(name, "beta")
}

// Step rescales each parameter's gradient by its trust ratio, then delegates
// the actual update to the base optimizer.
func (l *LARS[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range l.params {
		grad := getGradient(param, grads)
		if grad == nil || l.exclude(param) {
			continue
		}

		paramRaw := param.Tensor().Raw()
		pNorm := l2Norm(paramRaw)
		gNorm := l2Norm(grad)
		if pNorm == 0 || gNorm == 0 {
			continue
		}

		trust := float64(l.eta) * pNorm / (gNorm + float64(l.weightDecay)*pNorm + float64(l.eps))
		if l.clip {
			// Clamp so the effective rate never exceeds the base lr.
			trust = min(trust/float64(l.base.GetLR()), 1)
		}

		// Scale into a fresh buffer: the recorded gradient may be shared
		// with the tape's accumulation map.
		scaled := grad.DeepClone()
		scaledData := scaled.AsFloat32()
		paramData := paramRaw.AsFloat32()
		for i := range scaledData {
			scaledData[i] = (scaledData[i] + l.weightDecay*paramData[i]) * float32(trust)
		}
		grads[paramRaw] = scaled
	}

	l.base.Step(grads)
}

// ZeroGrad clears gradients via the base optimizer.
func (l *LARS[B]) ZeroGrad() {
	l.base.ZeroGrad()
}

// GetLR returns the base optimizer's learning rate.
func (l *LARS[B]) GetLR() float32 {
	return l.base.GetLR()
}

// SetLR forwards a schedule update to the base optimizer.
func (l *LARS[B]) SetLR(lr float32) {
	if settable, ok := l.base.(LRSettable); ok {
		settable.SetLR(lr)
	}
}
