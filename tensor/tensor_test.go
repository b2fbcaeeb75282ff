// Copyright 2026 The SimSiam-Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/winter1pm/simsiam/backend/cpu"
	"github.com/winter1pm/simsiam/tensor"
)

func TestPublicAPIRoundTrip(t *testing.T) {
	be := cpu.New()

	x, err := tensor.FromSlice[float32]([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, be)
	if err != nil {
		t.Fatal(err)
	}
	y := tensor.Ones[float32](tensor.Shape{2, 2}, be)

	z := x.Add(y)
	want := []float32{2, 3, 4, 5}
	for i, v := range z.Data() {
		if v != want[i] {
			t.Fatalf("z = %v, want %v", z.Data(), want)
		}
	}
}

func TestPublicCreationShapes(t *testing.T) {
	be := cpu.New()

	if got := tensor.Zeros[float32](tensor.Shape{3, 4}, be).Shape(); !got.Equal(tensor.Shape{3, 4}) {
		t.Errorf("Zeros shape = %v", got)
	}
	if got := tensor.Full[float32](tensor.Shape{2}, 7, be).At(1); got != 7 {
		t.Errorf("Full value = %v, want 7", got)
	}
	if got := tensor.Randn[float32](tensor.Shape{5}, be).NumElements(); got != 5 {
		t.Errorf("Randn elements = %d, want 5", got)
	}
}
