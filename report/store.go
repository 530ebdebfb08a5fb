package report

import (
	"perceptron/db"
)

const modelName = "perceptron"

// Store records run history in the SQLite database. Only progress and
// final metrics are kept, never the trained parameters.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Start(info RunInfo) error {
	return db.SaveTrainingLog(db.TrainingLog{
		RunID:        info.RunID,
		ModelName:    modelName,
		LearningRate: info.LearningRate,
		Epochs:       info.Epochs,
		Workers:      info.Workers,
		Features:     info.Features,
		DataPoints:   info.TrainSize,
		TestPoints:   info.TestSize,
		Status:       StatusRunning,
		StartedAt:    info.StartedAt,
		TrainedAt:    info.StartedAt,
	})
}

func (s *Store) Report(r RoundReport) error {
	return db.SaveRound(db.RoundRecord{
		RunID:         r.RunID,
		Round:         r.Round,
		TrainAccuracy: r.TrainAccuracy,
		TestAccuracy:  r.TestAccuracy,
		TrainLoss:     r.TrainLoss,
		Elapsed:       r.Elapsed,
	})
}

func (s *Store) Finish(summary Summary) error {
	entry := db.TrainingLog{
		RunID:        summary.RunID,
		ModelName:    modelName,
		LearningRate: summary.LearningRate,
		Epochs:       summary.Epochs,
		Workers:      summary.Workers,
		Features:     summary.Features,
		DataPoints:   summary.TrainSize,
		TestPoints:   summary.TestSize,
		Status:       summary.Status,
		Accuracy:     summary.Train.Accuracy,
		Precision:    summary.Train.Precision,
		Recall:       summary.Train.Recall,
		Error:        summary.Error,
		StartedAt:    summary.StartedAt,
		TrainedAt:    summary.FinishedAt,
	}
	if summary.Test != nil {
		accuracy := summary.Test.Accuracy
		entry.TestAccuracy = &accuracy
	}
	return db.SaveTrainingLog(entry)
}
