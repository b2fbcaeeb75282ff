package optim

import (
	"github.com/winter1pm/simsiam/internal/nn"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum and
// weight decay.
//
// Update rule:
//
//	v_t = momentum * v_{t-1} + grad + weight_decay * param
//	param = param - lr * v_t
type SGD[B tensor.Backend] struct {
	params      []*nn.Parameter[B]
	lr          float32
	momentum    float32
	weightDecay float32
	velocity    map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	backend     B
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR          float32 // Learning rate (default: 0.01)
	Momentum    float32 // Momentum factor (default: 0, plain SGD)
	WeightDecay float32 // L2 penalty (default: 0)
}

// NewSGD creates a new SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[B]{
		params:      params,
		lr:          config.LR,
		momentum:    config.Momentum,
		weightDecay: config.WeightDecay,
		velocity:    make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		backend:     backend,
	}
}

// Step performs a single optimization step.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		gradData := grad.AsFloat32()
		paramData := param.Tensor().Raw().AsFloat32()

		if s.momentum == 0 {
			for i := range paramData {
				g := gradData[i] + s.weightDecay*paramData[i]
				paramData[i] -= s.lr * g
			}
			continue
		}

		v, ok := s.velocity[param]
		if !ok {
			v = tensor.Zeros[float32](param.Tensor().Shape(), s.backend)
			s.velocity[param] = v
		}
		vData := v.Raw().AsFloat32()

		for i := range paramData {
			g := gradData[i] + s.weightDecay*paramData[i]
			vData[i] = s.momentum*vData[i] + g
			paramData[i] -= s.lr * vData[i]
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float32 {
	return s.lr
}

// SetLR updates the learning rate. Used by schedules.
func (s *SGD[B]) SetLR(lr float32) {
	s.lr = lr
}
