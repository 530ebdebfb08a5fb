package ml

import (
	"math"

	"github.com/pkg/errors"
)

const (
	DefaultLearningRate = 0.1
	DefaultEpochs       = 100
	DefaultWorkers      = 1
)

// RoundHook observes the parameters after each committed update. Round is
// zero based. Returning an error stops training.
type RoundHook func(round int, s Snapshot) error

type TrainOptions struct {
	// LearningRate scales the gradient applied at every round.
	LearningRate float64

	// Epochs is the exact number of rounds; there is no early stopping.
	Epochs int

	// Workers bounds the goroutines computing partition gradients.
	Workers int

	// OnRound is called after every round, may be nil.
	OnRound RoundHook
}

type TrainOptionFunc func(options *TrainOptions)

func WithLearningRate(learningRate float64) TrainOptionFunc {
	return func(options *TrainOptions) {
		options.LearningRate = learningRate
	}
}

func WithEpochs(epochs int) TrainOptionFunc {
	return func(options *TrainOptions) {
		options.Epochs = epochs
	}
}

func WithWorkers(workers int) TrainOptionFunc {
	return func(options *TrainOptions) {
		options.Workers = workers
	}
}

func WithRoundHook(hook RoundHook) TrainOptionFunc {
	return func(options *TrainOptions) {
		options.OnRound = hook
	}
}

func NewTrainOptions() *TrainOptions {
	return &TrainOptions{
		LearningRate: DefaultLearningRate,
		Epochs:       DefaultEpochs,
		Workers:      DefaultWorkers,
	}
}

func (o *TrainOptions) Validate() error {
	if !(o.LearningRate > 0) || math.IsInf(o.LearningRate, 0) {
		return errors.Wrapf(ErrInvalidOption, "learning rate must be positive and finite, got %v", o.LearningRate)
	}
	if o.Epochs < 1 {
		return errors.Wrapf(ErrInvalidOption, "epochs must be positive, got %d", o.Epochs)
	}
	if o.Workers < 1 {
		return errors.Wrapf(ErrInvalidOption, "workers must be positive, got %d", o.Workers)
	}
	return nil
}
