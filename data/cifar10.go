package data

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CIFAR-10 binary format constants.
const (
	cifarChannels   = 3
	cifarHeight     = 32
	cifarWidth      = 32
	cifarPixelBytes = cifarChannels * cifarHeight * cifarWidth // 3072
	cifarRecordSize = 1 + cifarPixelBytes                      // Label byte + pixels
	cifarClasses    = 10
)

// CIFAR10Mean and CIFAR10Std are the standard per-channel training set
// statistics used for normalization.
var (
	CIFAR10Mean = [3]float32{0.4914, 0.4822, 0.4465}
	CIFAR10Std  = [3]float32{0.2470, 0.2435, 0.2616}
)

// CIFAR10 is the CIFAR-10 dataset loaded from the official binary files
// (cifar-10-batches-bin layout). Each record is one label byte followed by
// 3072 pixel bytes in CHW order.
type CIFAR10 struct {
	images [][]float32
	labels []int32
}

// LoadCIFAR10 reads the training split (data_batch_1.bin .. data_batch_5.bin)
// or the test split (test_batch.bin) from dir.
func LoadCIFAR10(dir string, train bool) (*CIFAR10, error) {
	var files []string
	if train {
		for i := 1; i <= 5; i++ {
			files = append(files, filepath.Join(dir, fmt.Sprintf("data_batch_%d.bin", i)))
		}
	} else {
		files = append(files, filepath.Join(dir, "test_batch.bin"))
	}

	ds := &CIFAR10{}
	for _, f := range files {
		if err := ds.readBatchFile(f); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (d *CIFAR10) readBatchFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CIFAR-10 batch: %w", err)
	}
	defer file.Close()

	record := make([]byte, cifarRecordSize)
	for {
		_, err := io.ReadFull(file, record)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CIFAR-10 record from %s: %w", path, err)
		}

		label := int32(record[0])
		if label < 0 || label >= cifarClasses {
			return fmt.Errorf("label out of range [0, %d) in %s: %d", cifarClasses, path, label)
		}

		img := make([]float32, cifarPixelBytes)
		for i, b := range record[1:] {
			img[i] = float32(b) / 255.0
		}

		d.images = append(d.images, img)
		d.labels = append(d.labels, label)
	}
}

// Len returns the number of samples.
func (d *CIFAR10) Len() int { return len(d.images) }

// Sample returns the i-th image and label.
func (d *CIFAR10) Sample(i int) ([]float32, int32) {
	checkIndex(i, len(d.images))
	return d.images[i], d.labels[i]
}

// Dims returns (3, 32, 32).
func (d *CIFAR10) Dims() (int, int, int) {
	return cifarChannels, cifarHeight, cifarWidth
}

// NumClasses returns 10.
func (d *CIFAR10) NumClasses() int { return cifarClasses }
