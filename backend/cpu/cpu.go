// Copyright 2026 The SimSiam-Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// The backend detects the host CPU at construction and sizes its
// parallel execution accordingly. All operations work on float32,
// float64, int32 and int64 tensors with NumPy-style broadcasting.
package cpu

import (
	internalcpu "github.com/winter1pm/simsiam/internal/backend/cpu"
	"github.com/winter1pm/simsiam/tensor"
)

// Backend is the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend tuned for the host processor.
func New() *Backend {
	return internalcpu.New()
}
