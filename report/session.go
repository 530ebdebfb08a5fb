package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"perceptron/ml"
)

const DefaultInterval = 10

// Session owns one training run. It evaluates the parameters every Interval
// rounds and on the last round, and forwards the results to its reporter.
type Session struct {
	runID    string
	train    ml.Dataset
	test     ml.Dataset
	reporter Reporter
	logger   *zap.Logger
	interval int
	now      func() time.Time

	epochs int
	last   time.Time
	rounds int
}

type SessionOption func(s *Session)

func WithInterval(interval int) SessionOption {
	return func(s *Session) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession prepares a run over train. test may be empty.
func NewSession(runID string, train, test ml.Dataset, reporter Reporter, opts ...SessionOption) *Session {
	s := &Session{
		runID:    runID,
		train:    train,
		test:     test,
		reporter: reporter,
		logger:   zap.NewNop(),
		interval: DefaultInterval,
		now:      time.Now,
	}
	if s.reporter == nil {
		s.reporter = Multi{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run trains params with the given options and returns the run summary. The
// summary is produced even when training fails; its Parameters are the last
// valid values.
func (s *Session) Run(ctx context.Context, params *ml.Parameters, opts ...ml.TrainOptionFunc) (Summary, error) {
	trainer, err := ml.NewTrainer(append(opts, ml.WithRoundHook(s.onRound))...)
	if err != nil {
		return Summary{}, err
	}
	options := trainer.Options()
	s.epochs = options.Epochs
	s.rounds = 0

	started := s.now()
	s.last = started
	info := RunInfo{
		RunID:        s.runID,
		LearningRate: options.LearningRate,
		Epochs:       options.Epochs,
		Workers:      options.Workers,
		Features:     params.Dim(),
		TrainSize:    s.train.Len(),
		TestSize:     s.test.Len(),
		StartedAt:    started,
	}
	if err := s.reporter.Start(info); err != nil {
		s.logger.Warn("reporter start failed", zap.String("run_id", s.runID), zap.Error(err))
	}

	trainErr := trainer.Train(ctx, params, s.train)

	finished := s.now()
	summary := Summary{
		RunInfo:    info,
		Status:     statusOf(trainErr),
		Rounds:     s.rounds,
		Duration:   finished.Sub(started),
		FinishedAt: finished,
		Parameters: params.Snapshot(),
	}
	if trainErr != nil {
		summary.Error = trainErr.Error()
	}
	if s.train.Len() > 0 {
		if m, err := ml.Evaluate(summary.Parameters, s.train); err == nil {
			summary.Train = m
		}
	}
	if s.test.Len() > 0 {
		if m, err := ml.Evaluate(summary.Parameters, s.test); err == nil {
			summary.Test = &m
		}
	}

	if err := s.reporter.Finish(summary); err != nil {
		s.logger.Warn("reporter finish failed", zap.String("run_id", s.runID), zap.Error(err))
	}
	return summary, trainErr
}

func (s *Session) onRound(round int, snapshot ml.Snapshot) error {
	s.rounds = round + 1
	if round%s.interval != 0 && round != s.epochs-1 {
		return nil
	}

	metrics, err := ml.Evaluate(snapshot, s.train)
	if err != nil {
		return errors.Wrap(err, "failed to evaluate training set")
	}
	now := s.now()
	r := RoundReport{
		RunID:         s.runID,
		Round:         round,
		TrainAccuracy: metrics.Accuracy,
		TrainLoss:     metrics.LogLoss,
		Elapsed:       now.Sub(s.last),
	}
	if s.test.Len() > 0 {
		accuracy, err := ml.Accuracy(snapshot, s.test.Features, s.test.Labels)
		if err != nil {
			return errors.Wrap(err, "failed to evaluate test set")
		}
		r.TestAccuracy = &accuracy
	}
	s.last = now

	if err := s.reporter.Report(r); err != nil {
		s.logger.Warn("reporter failed", zap.String("run_id", s.runID), zap.Int("round", round), zap.Error(err))
	}
	return nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusCompleted
	case errors.Is(err, ml.ErrDivergence):
		return StatusDiverged
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusFailed
	}
}
