package data

import "math/rand"

// Synthetic is a randomly generated dataset for tests and smoke runs.
type Synthetic struct {
	images   [][]float32
	labels   []int32
	channels int
	height   int
	width    int
	classes  int
}

// NewSynthetic generates n random images of the given dimensions with
// uniformly distributed labels.
func NewSynthetic(n, c, h, w, classes int, seed int64) *Synthetic {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Test data generation.

	images := make([][]float32, n)
	labels := make([]int32, n)
	for i := range images {
		img := make([]float32, c*h*w)
		for j := range img {
			img[j] = rng.Float32()
		}
		images[i] = img
		labels[i] = int32(rng.Intn(classes))
	}

	return &Synthetic{
		images:   images,
		labels:   labels,
		channels: c,
		height:   h,
		width:    w,
		classes:  classes,
	}
}

// Len returns the number of samples.
func (d *Synthetic) Len() int { return len(d.images) }

// Sample returns the i-th image and label.
func (d *Synthetic) Sample(i int) ([]float32, int32) {
	checkIndex(i, len(d.images))
	return d.images[i], d.labels[i]
}

// Dims returns the configured image dimensions.
func (d *Synthetic) Dims() (int, int, int) {
	return d.channels, d.height, d.width
}

// NumClasses returns the configured class count.
func (d *Synthetic) NumClasses() int { return d.classes }
