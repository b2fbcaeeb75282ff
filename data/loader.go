package data

import (
	"fmt"
	"math/rand"

	"github.com/winter1pm/simsiam/internal/parallel"
	"github.com/winter1pm/simsiam/internal/tensor"
)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	BatchSize int  // Default 32
	Shuffle   bool // Reshuffle sample order at the start of every epoch
	// NumWorkers is the number of goroutines augmenting samples within a
	// batch. Zero keeps the work on the calling goroutine.
	NumWorkers int
	Seed       int64 // Shuffle and augmentation seed
	// DropLast drops a trailing batch smaller than BatchSize. Batch norm
	// needs at least two samples, so training loaders keep this on.
	DropLast bool
}

// Loader iterates a dataset in shuffled batches, producing two augmented
// views per sample.
type Loader[B tensor.Backend] struct {
	dataset   Dataset
	transform Transform
	backend   B
	cfg       LoaderConfig
	rng       *rand.Rand
	indices   []int
	cursor    int
}

// NewLoader creates a loader over dataset with the given view transform.
func NewLoader[B tensor.Backend](dataset Dataset, transform Transform, backend B, cfg LoaderConfig) *Loader[B] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.NumWorkers < 0 {
		cfg.NumWorkers = 0
	}

	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}

	l := &Loader[B]{
		dataset:   dataset,
		transform: transform,
		backend:   backend,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // Augmentation randomness, not security.
		indices:   indices,
	}
	l.Reset()
	return l
}

// NumBatches returns the number of batches per epoch.
func (l *Loader[B]) NumBatches() int {
	n := len(l.indices) / l.cfg.BatchSize
	if !l.cfg.DropLast && len(l.indices)%l.cfg.BatchSize != 0 {
		n++
	}
	return n
}

// Reset rewinds the loader to the start of an epoch, reshuffling if
// configured.
func (l *Loader[B]) Reset() {
	l.cursor = 0
	if l.cfg.Shuffle {
		l.rng.Shuffle(len(l.indices), func(i, j int) {
			l.indices[i], l.indices[j] = l.indices[j], l.indices[i]
		})
	}
}

// Next returns the next batch, or (nil, false) when the epoch is done.
func (l *Loader[B]) Next() (*Batch[B], bool) {
	remaining := len(l.indices) - l.cursor
	if remaining <= 0 {
		return nil, false
	}
	size := min(l.cfg.BatchSize, remaining)
	if size < l.cfg.BatchSize && l.cfg.DropLast {
		return nil, false
	}

	batch := l.collate(l.indices[l.cursor : l.cursor+size])
	l.cursor += size
	return batch, true
}

// collate augments each sample twice and packs the views into tensors.
func (l *Loader[B]) collate(indices []int) *Batch[B] {
	c, h, w := l.dataset.Dims()
	dim := c * h * w
	size := len(indices)

	view1 := make([]float32, size*dim)
	view2 := make([]float32, size*dim)
	labels := make([]int32, size)

	// Per-sample seeds drawn up front so workers never share the rng.
	seeds := make([]int64, size)
	for i := range seeds {
		seeds[i] = l.rng.Int63()
	}

	par := parallel.Config{
		Enabled:      l.cfg.NumWorkers > 0 && size > 1,
		NumWorkers:   max(l.cfg.NumWorkers, 1),
		MinChunkSize: 1,
	}
	parallel.For(size, func(i int) {
		img, label := l.dataset.Sample(indices[i])
		labels[i] = label

		rng := rand.New(rand.NewSource(seeds[i])) //nolint:gosec // Augmentation randomness.
		copy(view1[i*dim:(i+1)*dim], l.transform.Apply(img, c, h, w, rng))
		copy(view2[i*dim:(i+1)*dim], l.transform.Apply(img, c, h, w, rng))
	}, par)

	shape := tensor.Shape{size, dim}
	v1, err := tensor.FromSlice[float32](view1, shape, l.backend)
	if err != nil {
		panic(fmt.Sprintf("loader: %v", err))
	}
	v2, err := tensor.FromSlice[float32](view2, shape, l.backend)
	if err != nil {
		panic(fmt.Sprintf("loader: %v", err))
	}
	lbl, err := tensor.FromSlice[int32](labels, tensor.Shape{size}, l.backend)
	if err != nil {
		panic(fmt.Sprintf("loader: %v", err))
	}

	return &Batch[B]{View1: v1, View2: v2, Labels: lbl}
}
