package trainer

import (
	"errors"
	"log"
	"os"

	"github.com/winter1pm/simsiam/data"
	"github.com/winter1pm/simsiam/internal/autodiff"
	"github.com/winter1pm/simsiam/internal/optim"
	"github.com/winter1pm/simsiam/simsiam"
)

// State tracks where the trainer is in its lifecycle.
type State int

const (
	StateConstructed State = iota
	StateTraining
	StateValidating
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateTraining:
		return "training"
	case StateValidating:
		return "validating"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Config configures a Trainer.
type Config struct {
	// MaxEpochs caps the run. Zero takes the model's configured maximum.
	MaxEpochs int
	// Sink receives metric records. Nil selects the stderr log sink.
	Sink Sink
	// Quiet suppresses the per-epoch progress log.
	Quiet bool
}

// Trainer runs the training loop: for each epoch it pushes the scheduled
// learning rate into the optimizer, walks the training loader with
// gradient steps and target refreshes, then walks the validation loader
// with the tape paused.
//
// Errors from the numeric layers surface as panics and abort the run.
type Trainer[B autodiff.BackwardCapable] struct {
	backend B
	cfg     Config
	logger  *MetricsLogger
	log     *log.Logger
	state   State
}

// New creates a trainer in the constructed state.
func New[B autodiff.BackwardCapable](backend B, cfg Config) *Trainer[B] {
	sink := cfg.Sink
	if sink == nil {
		sink = NewLogSink()
	}
	return &Trainer[B]{
		backend: backend,
		cfg:     cfg,
		logger:  NewMetricsLogger(sink),
		log:     log.New(os.Stderr, "trainer: ", log.LstdFlags),
		state:   StateConstructed,
	}
}

// State returns the current lifecycle state.
func (t *Trainer[B]) State() State {
	return t.state
}

// Metrics returns the run's metric logger.
func (t *Trainer[B]) Metrics() *MetricsLogger {
	return t.logger
}

// Fit trains the model. The validation loader may be nil to skip the
// validation pass.
func (t *Trainer[B]) Fit(model *simsiam.SimSiam[B], train, val *data.Loader[B]) error {
	if model == nil {
		return errors.New("trainer: model is nil")
	}
	if train == nil {
		return errors.New("trainer: training loader is nil")
	}

	maxEpochs := t.cfg.MaxEpochs
	if maxEpochs == 0 {
		maxEpochs = model.Hyperparameters().MaxEpochs
	}
	if maxEpochs < 0 {
		return errors.New("trainer: MaxEpochs must not be negative")
	}

	model.SetMetricSink(t.logger)
	opt, schedule := model.ConfigureOptimizers()
	settable, _ := opt.(optim.LRSettable)

	if !t.cfg.Quiet {
		t.log.Printf("run %s: %d epochs, %d training batches per epoch",
			t.logger.RunID(), maxEpochs, train.NumBatches())
	}

	for epoch := 0; epoch < maxEpochs; epoch++ {
		lr := schedule.LR(epoch)
		if settable != nil {
			settable.SetLR(lr)
		}
		t.logger.StartEpoch(epoch)

		t.trainEpoch(model, opt, train)
		if val != nil {
			t.validateEpoch(model, val)
		}

		if !t.cfg.Quiet {
			t.log.Printf("epoch %d done (lr=%.6f)", epoch, lr)
		}
	}

	t.state = StateFinished
	return nil
}

func (t *Trainer[B]) trainEpoch(model *simsiam.SimSiam[B], opt optim.Optimizer, loader *data.Loader[B]) {
	t.state = StateTraining
	t.logger.SetPhase(PhaseTrain)
	model.SetTraining(true)

	tape := t.backend.GetTape()
	loader.Reset()
	for {
		batch, ok := loader.Next()
		if !ok {
			break
		}

		opt.ZeroGrad()
		tape.Clear()
		tape.StartRecording()
		total := model.TrainingStep(batch.View1, batch.View2)
		grads := autodiff.Backward(total, t.backend)
		tape.StopRecording()
		tape.Clear()

		opt.Step(grads)
		model.RefreshTarget()
		t.logger.NextStep()
	}
}

func (t *Trainer[B]) validateEpoch(model *simsiam.SimSiam[B], loader *data.Loader[B]) {
	t.state = StateValidating
	t.logger.SetPhase(PhaseValidation)
	model.SetTraining(false)

	// No recording, no optimizer step, no target refresh.
	loader.Reset()
	for {
		batch, ok := loader.Next()
		if !ok {
			break
		}
		model.ValidationStep(batch.View1, batch.View2)
		t.logger.NextStep()
	}
}
