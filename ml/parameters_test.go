package ml

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParametersSmallInit(t *testing.T) {
	params, err := NewParameters(50, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	s := params.Snapshot()
	assert.Equal(t, 50, s.Dim())
	assert.Equal(t, 0.0, s.Bias)
	for _, w := range s.Weights {
		assert.LessOrEqual(t, math.Abs(w), InitScale)
	}
}

func TestNewParametersSeeded(t *testing.T) {
	a, err := NewParameters(8, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := NewParameters(8, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestNewParametersInvalidDimension(t *testing.T) {
	_, err := NewParameters(0, nil)
	assert.True(t, errors.Is(err, ErrInvalidDimension))

	_, err = NewParametersFrom(nil, 0)
	assert.True(t, errors.Is(err, ErrInvalidDimension))

	_, err = NewParametersFrom([]float64{math.NaN()}, 0)
	assert.True(t, errors.Is(err, ErrDivergence))
}

func TestSnapshotIsCopy(t *testing.T) {
	weights := []float64{1, 2}
	params, err := NewParametersFrom(weights, 0)
	require.NoError(t, err)
	weights[0] = 100

	s := params.Snapshot()
	s.Weights[1] = 200
	assert.Equal(t, []float64{1, 2}, params.Snapshot().Weights)
}

func TestApply(t *testing.T) {
	params, err := NewParametersFrom([]float64{1, 2}, 3)
	require.NoError(t, err)

	require.NoError(t, params.Apply([]float64{0.5, -1}, 1))
	s := params.Snapshot()
	assert.Equal(t, []float64{0.5, 3}, s.Weights)
	assert.Equal(t, 2.0, s.Bias)
}

func TestApplyRejectsNonFinite(t *testing.T) {
	params, err := NewParametersFrom([]float64{1, 2}, 3)
	require.NoError(t, err)
	before := params.Snapshot()

	err = params.Apply([]float64{0.5, math.Inf(-1)}, 1)
	require.Error(t, err)
	var divergence *DivergenceError
	require.True(t, errors.As(err, &divergence))
	assert.Equal(t, 1, divergence.Index)
	assert.Equal(t, before, params.Snapshot())

	err = params.Apply([]float64{0, 0}, math.NaN())
	require.True(t, errors.As(err, &divergence))
	assert.Equal(t, -1, divergence.Index)
	assert.Equal(t, before, params.Snapshot())

	err = params.Apply([]float64{0}, 0)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}
