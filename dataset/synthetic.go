// Package dataset supplies labelled feature vectors to the trainer: a
// synthetic hyperplane generator, a CSV loader and train/test splitting.
package dataset

import (
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"perceptron/ml"
)

const (
	DefaultSamples    = 1000000
	DefaultFeatures   = 30
	DefaultFeatureMin = -2.0
	DefaultFeatureMax = 2.0
	DefaultNoise      = 0.05
)

// SyntheticConfig describes a generated dataset.
type SyntheticConfig struct {
	Samples    int     `yaml:"samples" json:"samples"`
	Features   int     `yaml:"features" json:"features"`
	FeatureMin float64 `yaml:"feature_min" json:"feature_min"`
	FeatureMax float64 `yaml:"feature_max" json:"feature_max"`
	// Noise is the half width of the uniform perturbation added to the true
	// probability before the label is drawn.
	Noise float64 `yaml:"noise" json:"noise"`
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Samples:    DefaultSamples,
		Features:   DefaultFeatures,
		FeatureMin: DefaultFeatureMin,
		FeatureMax: DefaultFeatureMax,
		Noise:      DefaultNoise,
	}
}

func (c SyntheticConfig) Validate() error {
	if c.Samples <= 0 {
		return errors.New("samples must be positive")
	}
	if c.Features <= 0 {
		return errors.New("features must be positive")
	}
	if !(c.FeatureMax > c.FeatureMin) {
		return errors.Errorf("feature range [%v, %v] is empty", c.FeatureMin, c.FeatureMax)
	}
	if c.Noise < 0 || c.Noise > 1 {
		return errors.Errorf("noise must be within [0, 1], got %v", c.Noise)
	}
	return nil
}

// Hyperplane is the ground truth a synthetic dataset was drawn from.
type Hyperplane struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Generate draws a ground truth hyperplane with weights and bias in [-1, 1],
// then samples features uniformly from the configured range and a label per
// row from the noisy sigmoid of the true logit. A nil rng is seeded from the clock.
func Generate(cfg SyntheticConfig, rng *rand.Rand) (ml.Dataset, Hyperplane, error) {
	if err := cfg.Validate(); err != nil {
		return ml.Dataset{}, Hyperplane{}, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	truth := Hyperplane{Weights: make([]float64, cfg.Features)}
	for j := range truth.Weights {
		truth.Weights[j] = rng.Float64()*2 - 1
	}
	truth.Bias = rng.Float64()*2 - 1
	s := ml.Snapshot{Weights: truth.Weights, Bias: truth.Bias}

	width := cfg.FeatureMax - cfg.FeatureMin
	ds := ml.Dataset{
		Features: make([][]float64, cfg.Samples),
		Labels:   make([]int, cfg.Samples),
	}
	for i := range ds.Features {
		x := make([]float64, cfg.Features)
		for j := range x {
			x[j] = rng.Float64()*width + cfg.FeatureMin
		}
		ds.Features[i] = x

		p := ml.Sigmoid(ml.Logit(s, x))
		p += rng.Float64()*2*cfg.Noise - cfg.Noise
		p = math.Max(0, math.Min(1, p))
		if rng.Float64() < p {
			ds.Labels[i] = 1
		}
	}
	return ds, truth, nil
}
