package ml

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// InitScale bounds the initial weights to [-InitScale, InitScale] so the
// sigmoid starts in its linear region.
const InitScale = 0.01

// Snapshot is a read-only copy of the parameters at one point in time.
type Snapshot struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Dim returns the number of weights.
func (s Snapshot) Dim() int {
	return len(s.Weights)
}

// Parameters holds the weight vector and bias of the linear decision boundary.
// One instance lives for a whole training run; Apply swaps all values at once.
type Parameters struct {
	mu      sync.RWMutex
	weights []float64
	bias    float64
}

// NewParameters draws each weight uniformly from [-InitScale, InitScale] and
// starts the bias at zero. A nil rng is seeded from the clock.
func NewParameters(dim int, rng *rand.Rand) (*Parameters, error) {
	if dim < 1 {
		return nil, ErrInvalidDimension
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	weights := make([]float64, dim)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * InitScale
	}
	return &Parameters{weights: weights}, nil
}

// NewParametersFrom builds parameters from explicit values. The slice is copied.
func NewParametersFrom(weights []float64, bias float64) (*Parameters, error) {
	if len(weights) < 1 {
		return nil, ErrInvalidDimension
	}
	if idx, v, ok := firstNonFinite(weights, bias); !ok {
		return nil, &DivergenceError{Round: -1, Index: idx, Value: v}
	}
	return &Parameters{weights: append([]float64(nil), weights...), bias: bias}, nil
}

func (p *Parameters) Dim() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.weights)
}

func (p *Parameters) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		Weights: append([]float64(nil), p.weights...),
		Bias:    p.bias,
	}
}

// Apply performs weights -= step, bias -= stepBias. Either every value is
// updated or, when a result would be non-finite, none is and a
// *DivergenceError is returned.
func (p *Parameters) Apply(step []float64, stepBias float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(step) != len(p.weights) {
		return &DimensionMismatchError{Row: -1, Got: len(step), Want: len(p.weights)}
	}
	nextBias := p.bias - stepBias
	for j, w := range p.weights {
		if next := w - step[j]; math.IsNaN(next) || math.IsInf(next, 0) {
			return &DivergenceError{Round: -1, Index: j, Value: next}
		}
	}
	if math.IsNaN(nextBias) || math.IsInf(nextBias, 0) {
		return &DivergenceError{Round: -1, Index: -1, Value: nextBias}
	}

	for j := range p.weights {
		p.weights[j] -= step[j]
	}
	p.bias = nextBias
	return nil
}

func firstNonFinite(weights []float64, bias float64) (int, float64, bool) {
	for j, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return j, w, false
		}
	}
	if math.IsNaN(bias) || math.IsInf(bias, 0) {
		return -1, bias, false
	}
	return 0, 0, true
}
