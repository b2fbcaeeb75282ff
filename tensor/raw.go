// Copyright 2026 The SimSiam-Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/winter1pm/simsiam/internal/tensor"
)

// RawTensor is untyped tensor storage with reference-counted
// copy-on-write buffers. Backends operate on RawTensor; Tensor wraps it
// with compile-time type safety.
type RawTensor = tensor.RawTensor
