package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sigmoid is the logistic function 1 / (1 + e^-z).
func Sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Logit returns bias + w·x. The caller guarantees len(x) == s.Dim().
func Logit(s Snapshot, x []float64) float64 {
	return s.Bias + floats.Dot(s.Weights, x)
}

// Predict maps every feature vector to the probability of class 1.
// All vector lengths are checked before any arithmetic.
func Predict(s Snapshot, features [][]float64) ([]float64, error) {
	if err := checkDims(features, s.Dim()); err != nil {
		return nil, err
	}
	out := make([]float64, len(features))
	predictInto(s, features, out)
	return out, nil
}

// PredictInto is Predict writing into out, which must hold len(features) values.
func PredictInto(s Snapshot, features [][]float64, out []float64) error {
	if len(out) != len(features) {
		return &DimensionMismatchError{Row: -1, Got: len(out), Want: len(features)}
	}
	if err := checkDims(features, s.Dim()); err != nil {
		return err
	}
	predictInto(s, features, out)
	return nil
}

func predictInto(s Snapshot, features [][]float64, out []float64) {
	for i, x := range features {
		out[i] = Sigmoid(Logit(s, x))
	}
}
