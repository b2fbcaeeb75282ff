package data

import (
	"math/rand"
)

// Transform maps one image to one augmented view.
type Transform interface {
	Apply(img []float32, c, h, w int, rng *rand.Rand) []float32
}

// TwoViewTransform is the SimCLR-style augmentation pipeline: random crop
// with reflection-free zero padding, random horizontal flip, brightness and
// contrast jitter, then per-channel normalization. Applying it twice to the
// same image yields the two views the loss compares.
type TwoViewTransform struct {
	Pad            int     // Crop padding in pixels (default 4)
	FlipProb       float64 // Horizontal flip probability (default 0.5)
	JitterProb     float64 // Color jitter probability (default 0.8)
	JitterStrength float64 // Max relative brightness/contrast change (default 0.4)
	Mean           [3]float32
	Std            [3]float32
}

// NewTwoViewTransform returns the default augmentation with the given
// per-channel normalization statistics.
func NewTwoViewTransform(mean, std [3]float32) *TwoViewTransform {
	return &TwoViewTransform{
		Pad:            4,
		FlipProb:       0.5,
		JitterProb:     0.8,
		JitterStrength: 0.4,
		Mean:           mean,
		Std:            std,
	}
}

// Apply produces one augmented view.
func (t *TwoViewTransform) Apply(img []float32, c, h, w int, rng *rand.Rand) []float32 {
	out := randomCrop(img, c, h, w, t.Pad, rng)
	if rng.Float64() < t.FlipProb {
		horizontalFlip(out, c, h, w)
	}
	if rng.Float64() < t.JitterProb {
		jitter(out, t.JitterStrength, rng)
	}
	normalize(out, c, h, w, t.Mean, t.Std)
	return out
}

// TwoViews applies the pipeline twice with independent randomness.
func (t *TwoViewTransform) TwoViews(img []float32, c, h, w int, rng *rand.Rand) (view1, view2 []float32) {
	return t.Apply(img, c, h, w, rng), t.Apply(img, c, h, w, rng)
}

// EvalTransform normalizes without any randomness, for validation.
type EvalTransform struct {
	Mean [3]float32
	Std  [3]float32
}

// Apply normalizes a copy of the image. The rng is unused.
func (t *EvalTransform) Apply(img []float32, c, h, w int, _ *rand.Rand) []float32 {
	out := make([]float32, len(img))
	copy(out, img)
	normalize(out, c, h, w, t.Mean, t.Std)
	return out
}

// randomCrop zero-pads the image by pad on every side, then cuts an h×w
// window at a random offset. pad=0 degenerates to a copy.
func randomCrop(img []float32, c, h, w, pad int, rng *rand.Rand) []float32 {
	out := make([]float32, len(img))
	if pad <= 0 {
		copy(out, img)
		return out
	}

	// Offsets into the padded frame; the source pixel for out[y][x] is
	// img[y+dy][x+dx] with dy, dx in [-pad, pad].
	dy := rng.Intn(2*pad+1) - pad
	dx := rng.Intn(2*pad+1) - pad

	for ch := 0; ch < c; ch++ {
		base := ch * h * w
		for y := 0; y < h; y++ {
			sy := y + dy
			if sy < 0 || sy >= h {
				continue // Stays zero
			}
			for x := 0; x < w; x++ {
				sx := x + dx
				if sx < 0 || sx >= w {
					continue
				}
				out[base+y*w+x] = img[base+sy*w+sx]
			}
		}
	}
	return out
}

// horizontalFlip mirrors the image in place along the width axis.
func horizontalFlip(img []float32, c, h, w int) {
	for ch := 0; ch < c; ch++ {
		base := ch * h * w
		for y := 0; y < h; y++ {
			row := img[base+y*w : base+(y+1)*w]
			for i, j := 0, w-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
		}
	}
}

// jitter applies random brightness and contrast scaling in place.
// Values are clamped back to [0, 1].
func jitter(img []float32, strength float64, rng *rand.Rand) {
	brightness := float32(1 + strength*(2*rng.Float64()-1))
	contrast := float32(1 + strength*(2*rng.Float64()-1))

	var mean float32
	for _, v := range img {
		mean += v
	}
	mean /= float32(len(img))

	for i, v := range img {
		v = (v-mean)*contrast + mean
		v *= brightness
		img[i] = min(max(v, 0), 1)
	}
}

// normalize applies per-channel (x - mean) / std in place.
func normalize(img []float32, c, h, w int, mean, std [3]float32) {
	plane := h * w
	for ch := 0; ch < c; ch++ {
		m, s := mean[ch], std[ch]
		base := ch * plane
		for i := 0; i < plane; i++ {
			img[base+i] = (img[base+i] - m) / s
		}
	}
}
