// Copyright 2026 The SimSiam-Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// It wraps any backend with a gradient tape that records forward
// operations and replays them backwards to compute gradients.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//
//	backend.Tape().StartRecording()
//	loss := model.TrainingStep(view1, view2)
//	grads := autodiff.Backward(loss, backend)
//	backend.Tape().StopRecording()
package autodiff

import (
	"github.com/winter1pm/simsiam/internal/autodiff"
	"github.com/winter1pm/simsiam/tensor"
)

// Backend is the autodiff-enabled backend decorator.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New wraps a backend with gradient recording.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for the backward pass.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates an empty gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface for backends that can run a backward
// pass.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients for every tensor that contributed to t,
// seeding the output gradient with ones.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
