// Package report carries training progress from a run to its observers.
// Reporters are purely observational: they never influence the parameters.
package report

import (
	"time"

	"go.uber.org/multierr"

	"perceptron/ml"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusDiverged  = "diverged"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	RunID        string    `json:"run_id"`
	LearningRate float64   `json:"learning_rate"`
	Epochs       int       `json:"epochs"`
	Workers      int       `json:"workers"`
	Features     int       `json:"features"`
	TrainSize    int       `json:"train_size"`
	TestSize     int       `json:"test_size"`
	StartedAt    time.Time `json:"started_at"`
}

// RoundReport is emitted for selected rounds. TestAccuracy is nil when the
// run has no held-out data.
type RoundReport struct {
	RunID         string        `json:"run_id"`
	Round         int           `json:"round"`
	TrainAccuracy float64       `json:"train_accuracy"`
	TestAccuracy  *float64      `json:"test_accuracy,omitempty"`
	TrainLoss     float64       `json:"train_loss"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Summary is the outcome of a run.
type Summary struct {
	RunInfo
	Status     string        `json:"status"`
	Rounds     int           `json:"rounds"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
	Train      ml.Metrics    `json:"train"`
	Test       *ml.Metrics   `json:"test,omitempty"`
	Error      string        `json:"error,omitempty"`
	Parameters ml.Snapshot   `json:"parameters"`
}

type Reporter interface {
	Start(info RunInfo) error
	Report(r RoundReport) error
	Finish(s Summary) error
}

// Multi fans out to every reporter and combines their errors.
type Multi []Reporter

func (m Multi) Start(info RunInfo) error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Start(info))
	}
	return err
}

func (m Multi) Report(round RoundReport) error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Report(round))
	}
	return err
}

func (m Multi) Finish(s Summary) error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Finish(s))
	}
	return err
}
