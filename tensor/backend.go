// Copyright 2026 The SimSiam-Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/winter1pm/simsiam/internal/tensor"
)

// Backend is the interface compute implementations satisfy. Operations
// take and return RawTensor; invalid inputs panic.
type Backend = tensor.Backend
