package data

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// STL-10 binary format constants.
const (
	stlChannels   = 3
	stlHeight     = 96
	stlWidth      = 96
	stlPixelBytes = stlChannels * stlHeight * stlWidth // 27648
	stlClasses    = 10
)

// STL10Mean and STL10Std are per-channel normalization statistics for the
// STL-10 training split.
var (
	STL10Mean = [3]float32{0.4467, 0.4398, 0.4066}
	STL10Std  = [3]float32{0.2243, 0.2214, 0.2236}
)

// STL10 is the STL-10 dataset loaded from the official binary files.
// Images and labels live in separate files: the image file holds 27648
// bytes per 96×96×3 image, column-major within each channel; the label
// file holds one byte per image with classes numbered 1-10.
type STL10 struct {
	images [][]float32
	labels []int32
}

// LoadSTL10 reads a split from dir: "train" (train_X.bin/train_y.bin),
// "test" (test_X.bin/test_y.bin) or "unlabeled" (unlabeled_X.bin, all
// labels -1).
func LoadSTL10(dir, split string) (*STL10, error) {
	var imageFile, labelFile string
	switch split {
	case "train":
		imageFile, labelFile = "train_X.bin", "train_y.bin"
	case "test":
		imageFile, labelFile = "test_X.bin", "test_y.bin"
	case "unlabeled":
		imageFile = "unlabeled_X.bin"
	default:
		return nil, fmt.Errorf("unknown STL-10 split %q (want train, test or unlabeled)", split)
	}

	ds := &STL10{}
	if err := ds.readImages(filepath.Join(dir, imageFile)); err != nil {
		return nil, err
	}

	if labelFile == "" {
		ds.labels = make([]int32, len(ds.images))
		for i := range ds.labels {
			ds.labels[i] = -1
		}
		return ds, nil
	}

	if err := ds.readLabels(filepath.Join(dir, labelFile)); err != nil {
		return nil, err
	}
	if len(ds.labels) != len(ds.images) {
		return nil, fmt.Errorf("STL-10 label count %d does not match image count %d",
			len(ds.labels), len(ds.images))
	}
	return ds, nil
}

func (d *STL10) readImages(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open STL-10 images: %w", err)
	}
	defer file.Close()

	raw := make([]byte, stlPixelBytes)
	for {
		_, err := io.ReadFull(file, raw)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read STL-10 image from %s: %w", path, err)
		}

		// The file stores each channel column-major; transpose to the
		// row-major CHW layout the transforms expect.
		img := make([]float32, stlPixelBytes)
		plane := stlHeight * stlWidth
		for ch := 0; ch < stlChannels; ch++ {
			base := ch * plane
			for x := 0; x < stlWidth; x++ {
				for y := 0; y < stlHeight; y++ {
					img[base+y*stlWidth+x] = float32(raw[base+x*stlHeight+y]) / 255.0
				}
			}
		}
		d.images = append(d.images, img)
	}
}

func (d *STL10) readLabels(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read STL-10 labels: %w", err)
	}

	d.labels = make([]int32, len(raw))
	for i, b := range raw {
		if b < 1 || b > stlClasses {
			return fmt.Errorf("label out of range [1, %d] in %s: %d", stlClasses, path, b)
		}
		d.labels[i] = int32(b) - 1 // File uses 1-based classes
	}
	return nil
}

// Len returns the number of samples.
func (d *STL10) Len() int { return len(d.images) }

// Sample returns the i-th image and label. Unlabeled samples carry -1.
func (d *STL10) Sample(i int) ([]float32, int32) {
	checkIndex(i, len(d.images))
	return d.images[i], d.labels[i]
}

// Dims returns (3, 96, 96).
func (d *STL10) Dims() (int, int, int) {
	return stlChannels, stlHeight, stlWidth
}

// NumClasses returns 10.
func (d *STL10) NumClasses() int { return stlClasses }
