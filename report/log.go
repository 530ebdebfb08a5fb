package report

import "go.uber.org/zap"

// Log writes one structured entry per event.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Start(info RunInfo) error {
	l.logger.Info("training started",
		zap.String("run_id", info.RunID),
		zap.Float64("learning_rate", info.LearningRate),
		zap.Int("epochs", info.Epochs),
		zap.Int("workers", info.Workers),
		zap.Int("features", info.Features),
		zap.Int("train_size", info.TrainSize),
		zap.Int("test_size", info.TestSize),
	)
	return nil
}

func (l *Log) Report(r RoundReport) error {
	fields := []zap.Field{
		zap.String("run_id", r.RunID),
		zap.Int("round", r.Round),
		zap.Float64("train_accuracy", r.TrainAccuracy),
		zap.Float64("train_loss", r.TrainLoss),
		zap.Duration("elapsed", r.Elapsed),
	}
	if r.TestAccuracy != nil {
		fields = append(fields, zap.Float64("test_accuracy", *r.TestAccuracy))
	}
	l.logger.Debug("training round", fields...)
	return nil
}

func (l *Log) Finish(s Summary) error {
	fields := []zap.Field{
		zap.String("run_id", s.RunID),
		zap.String("status", s.Status),
		zap.Int("rounds", s.Rounds),
		zap.Duration("duration", s.Duration),
		zap.Float64("train_accuracy", s.Train.Accuracy),
	}
	if s.Test != nil {
		fields = append(fields, zap.Float64("test_accuracy", s.Test.Accuracy))
	}
	if s.Error != "" {
		l.logger.Warn("training stopped", append(fields, zap.String("error", s.Error))...)
		return nil
	}
	l.logger.Info("training finished", fields...)
	return nil
}
