package report

import "perceptron/monitoring"

// Metrics feeds run events into a monitoring.TrainingMetrics collector.
type Metrics struct {
	collector *monitoring.TrainingMetrics
}

func NewMetrics(collector *monitoring.TrainingMetrics) *Metrics {
	return &Metrics{collector: collector}
}

func (m *Metrics) Start(info RunInfo) error {
	m.collector.RunStarted()
	return nil
}

func (m *Metrics) Report(r RoundReport) error {
	m.collector.RoundReported(r.TrainAccuracy, r.TestAccuracy, r.Elapsed)
	return nil
}

func (m *Metrics) Finish(s Summary) error {
	m.collector.RunFinished(s.Status, s.Duration)
	return nil
}
