// Package trainer drives the training loop: per-epoch learning rate
// scheduling, gradient steps with target refresh, and validation passes,
// with per-step metric recording.
package trainer

import (
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Phase labels which loop a metric was recorded in.
type Phase string

const (
	PhaseTrain      Phase = "train"
	PhaseValidation Phase = "val"
)

// Record is one named scalar observed at a specific step.
type Record struct {
	RunID string
	Phase Phase
	Epoch int
	Step  int
	Name  string
	Value float64
}

// Sink receives metric records as they are produced.
type Sink interface {
	Write(r Record)
}

// LogSink writes records through a standard logger.
type LogSink struct {
	Logger *log.Logger
}

// NewLogSink returns a sink logging to stderr with a metrics prefix.
func NewLogSink() *LogSink {
	return &LogSink{Logger: log.New(os.Stderr, "metrics: ", log.LstdFlags)}
}

// Write logs one record.
func (s *LogSink) Write(r Record) {
	s.Logger.Printf("run=%s phase=%s epoch=%d step=%d %s=%.6f",
		r.RunID, r.Phase, r.Epoch, r.Step, r.Name, r.Value)
}

// MetricsLogger records named scalars per step, tagged with a run ID,
// phase and epoch. It keeps every record in memory and forwards each one
// to the configured sink. Safe for concurrent use.
type MetricsLogger struct {
	mu      sync.Mutex
	runID   string
	phase   Phase
	epoch   int
	step    int
	records []Record
	sink    Sink
}

// NewMetricsLogger creates a logger with a fresh run ID. A nil sink keeps
// records in memory only.
func NewMetricsLogger(sink Sink) *MetricsLogger {
	return &MetricsLogger{
		runID: uuid.NewString(),
		phase: PhaseTrain,
		sink:  sink,
	}
}

// RunID returns the unique identifier of this run.
func (l *MetricsLogger) RunID() string {
	return l.runID
}

// SetPhase switches the phase tag for subsequent records.
func (l *MetricsLogger) SetPhase(p Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phase = p
	l.step = 0
}

// StartEpoch sets the epoch tag and resets the step counter.
func (l *MetricsLogger) StartEpoch(epoch int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch = epoch
	l.step = 0
}

// NextStep advances the step counter within the current phase.
func (l *MetricsLogger) NextStep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.step++
}

// LogDict records a set of named scalars at the current position.
func (l *MetricsLogger) LogDict(metrics map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, value := range metrics {
		r := Record{
			RunID: l.runID,
			Phase: l.phase,
			Epoch: l.epoch,
			Step:  l.step,
			Name:  name,
			Value: value,
		}
		l.records = append(l.records, r)
		if l.sink != nil {
			l.sink.Write(r)
		}
	}
}

// Records returns a copy of everything recorded so far.
func (l *MetricsLogger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Filter returns the recorded values for one metric name in one phase,
// in recording order.
func (l *MetricsLogger) Filter(phase Phase, name string) []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []float64
	for _, r := range l.records {
		if r.Phase == phase && r.Name == name {
			out = append(out, r.Value)
		}
	}
	return out
}
