package optim

import "math"

// Schedule computes the learning rate for a given epoch. Schedules are
// stepped once per epoch; the trainer pushes the value into the optimizer
// through LRSettable before the epoch's first batch.
type Schedule interface {
	LR(epoch int) float32
}

// LinearWarmupCosineAnnealing ramps the learning rate linearly from
// WarmupStartLR to BaseLR over WarmupEpochs, then decays it to EtaMin along
// a half cosine over the remaining epochs.
type LinearWarmupCosineAnnealing struct {
	BaseLR        float32
	WarmupStartLR float32 // Default 0
	EtaMin        float32 // Default 0
	WarmupEpochs  int
	MaxEpochs     int
}

// LR returns the learning rate for the given zero-based epoch.
// Epochs past MaxEpochs stay at EtaMin.
func (s *LinearWarmupCosineAnnealing) LR(epoch int) float32 {
	if epoch < s.WarmupEpochs {
		if s.WarmupEpochs == 0 {
			return s.BaseLR
		}
		frac := float32(epoch) / float32(s.WarmupEpochs)
		return s.WarmupStartLR + (s.BaseLR-s.WarmupStartLR)*frac
	}

	if epoch >= s.MaxEpochs {
		return s.EtaMin
	}

	span := s.MaxEpochs - s.WarmupEpochs
	if span <= 0 {
		return s.EtaMin
	}
	progress := float64(epoch-s.WarmupEpochs) / float64(span)
	cos := (1 + math.Cos(math.Pi*progress)) / 2
	return s.EtaMin + (s.BaseLR-s.EtaMin)*float32(cos)
}
