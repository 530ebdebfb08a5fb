package ml

import "math"

// DecisionThreshold separates the two classes. A probability equal to the
// threshold is classified as 0.
const DecisionThreshold = 0.5

// Classify returns 1 iff p > DecisionThreshold.
func Classify(p float64) int {
	if p > DecisionThreshold {
		return 1
	}
	return 0
}

// AccuracyOf returns the fraction of probabilities whose class matches the label.
func AccuracyOf(probabilities []float64, labels []int) (float64, error) {
	if len(labels) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(probabilities) != len(labels) {
		return 0, ErrLabelCountMismatch
	}
	if err := checkLabels(labels); err != nil {
		return 0, err
	}
	correct := 0
	for i, p := range probabilities {
		if Classify(p) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)), nil
}

// Accuracy predicts features with s and scores the result against labels.
func Accuracy(s Snapshot, features [][]float64, labels []int) (float64, error) {
	if len(features) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(features) != len(labels) {
		return 0, ErrLabelCountMismatch
	}
	probabilities, err := Predict(s, features)
	if err != nil {
		return 0, err
	}
	return AccuracyOf(probabilities, labels)
}

// Metrics summarises binary classification quality on one dataset.
type Metrics struct {
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	LogLoss        float64 `json:"log_loss"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalseNegatives int     `json:"false_negatives"`
}

// Evaluate computes Metrics for ds. Precision and recall are 0 when their
// denominators are empty.
func Evaluate(s Snapshot, ds Dataset) (Metrics, error) {
	if err := ds.Validate(s.Dim()); err != nil {
		return Metrics{}, err
	}
	probabilities, err := Predict(s, ds.Features)
	if err != nil {
		return Metrics{}, err
	}

	var m Metrics
	for i, p := range probabilities {
		predicted, actual := Classify(p), ds.Labels[i]
		switch {
		case predicted == 1 && actual == 1:
			m.TruePositives++
		case predicted == 1:
			m.FalsePositives++
		case actual == 1:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
		}
	}
	m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(len(probabilities))
	if predictedPositive := m.TruePositives + m.FalsePositives; predictedPositive > 0 {
		m.Precision = float64(m.TruePositives) / float64(predictedPositive)
	}
	if actualPositive := m.TruePositives + m.FalseNegatives; actualPositive > 0 {
		m.Recall = float64(m.TruePositives) / float64(actualPositive)
	}
	m.LogLoss, err = LogLoss(probabilities, ds.Labels)
	if err != nil {
		return Metrics{}, err
	}
	return m, nil
}

// logLossEpsilon keeps log() finite for saturated probabilities.
const logLossEpsilon = 1e-15

// LogLoss is the mean binary cross-entropy of probabilities against labels.
func LogLoss(probabilities []float64, labels []int) (float64, error) {
	if len(labels) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(probabilities) != len(labels) {
		return 0, ErrLabelCountMismatch
	}
	var sum float64
	for i, p := range probabilities {
		p = math.Min(math.Max(p, logLossEpsilon), 1-logLossEpsilon)
		if labels[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(labels)), nil
}
