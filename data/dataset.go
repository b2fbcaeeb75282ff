// Package data provides datasets, augmentation and batching for
// self-supervised training. Images are flattened float32 slices in CHW
// order with values in [0, 1]; the loader turns them into batched view
// pairs ready for the model.
package data

import (
	"fmt"

	"github.com/winter1pm/simsiam/internal/tensor"
)

// Dataset is a finite collection of labeled images.
type Dataset interface {
	// Len returns the number of samples.
	Len() int
	// Sample returns the i-th image (CHW, [0,1]) and its label.
	Sample(i int) (image []float32, label int32)
	// Dims returns the image dimensions (channels, height, width).
	Dims() (c, h, w int)
	// NumClasses returns the number of label classes.
	NumClasses() int
}

// Batch is one step's worth of data: two augmented views of the same
// images plus their labels. The self-supervised loss ignores the labels;
// they ride along for online evaluation.
type Batch[B tensor.Backend] struct {
	View1  *tensor.Tensor[float32, B]
	View2  *tensor.Tensor[float32, B]
	Labels *tensor.Tensor[int32, B]
}

// Size returns the number of samples in the batch.
func (b *Batch[B]) Size() int {
	return b.View1.Shape()[0]
}

func checkIndex(i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("dataset: index %d out of range [0, %d)", i, n))
	}
}
