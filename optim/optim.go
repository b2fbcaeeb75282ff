// Copyright 2026 The SimSiam-Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the public optimizer and schedule API.
package optim

import (
	"github.com/winter1pm/simsiam/internal/nn"
	"github.com/winter1pm/simsiam/internal/optim"
	"github.com/winter1pm/simsiam/tensor"
)

// Optimizer is the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Config is the base optimizer configuration.
type Config = optim.Config

// LRSettable is implemented by optimizers whose learning rate a schedule
// can adjust between epochs.
type LRSettable = optim.LRSettable

// SGD

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig configures SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// Adam

// Adam is the Adam optimizer with bias correction.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig configures Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdam(params, config, backend)
}

// LARS

// LARS wraps a base optimizer with layer-wise adaptive rate scaling.
type LARS[B tensor.Backend] = optim.LARS[B]

// LARSConfig configures the LARS wrapper.
type LARSConfig[B tensor.Backend] = optim.LARSConfig[B]

// NewLARS wraps a base optimizer with LARS using the default exclusion
// rule and trust ratio clipping.
func NewLARS[B tensor.Backend](base Optimizer, params []*nn.Parameter[B], weightDecay float32) *LARS[B] {
	return optim.NewLARS(base, params, weightDecay)
}

// NewLARSConfig wraps a base optimizer with explicit LARS configuration.
func NewLARSConfig[B tensor.Backend](base Optimizer, params []*nn.Parameter[B], config LARSConfig[B]) *LARS[B] {
	return optim.NewLARSConfig(base, params, config)
}

// Schedules

// Schedule computes the learning rate for a given epoch.
type Schedule = optim.Schedule

// LinearWarmupCosineAnnealing ramps the learning rate linearly, then
// decays it along a half cosine.
type LinearWarmupCosineAnnealing = optim.LinearWarmupCosineAnnealing
