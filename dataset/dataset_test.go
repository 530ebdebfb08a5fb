package dataset

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perceptron/ml"
)

func smallConfig() SyntheticConfig {
	cfg := DefaultSyntheticConfig()
	cfg.Samples = 500
	cfg.Features = 4
	return cfg
}

func TestGenerate(t *testing.T) {
	ds, truth, err := Generate(smallConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, 500, ds.Len())
	require.Len(t, ds.Labels, 500)
	assert.Equal(t, 4, ds.Dim())
	assert.Len(t, truth.Weights, 4)
	assert.True(t, truth.Bias >= -1 && truth.Bias <= 1)

	ones := 0
	for i, x := range ds.Features {
		for _, v := range x {
			assert.True(t, v >= DefaultFeatureMin && v < DefaultFeatureMax)
		}
		assert.Contains(t, []int{0, 1}, ds.Labels[i])
		ones += ds.Labels[i]
	}
	assert.Greater(t, ones, 0)
	assert.Less(t, ones, ds.Len())
}

func TestGenerateReproducible(t *testing.T) {
	a, ta, err := Generate(smallConfig(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	b, tb, err := Generate(smallConfig(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, ta, tb)
}

func TestGenerateInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Samples = 0
	_, _, err := Generate(cfg, nil)
	assert.Error(t, err)

	cfg = smallConfig()
	cfg.FeatureMax = cfg.FeatureMin
	_, _, err = Generate(cfg, nil)
	assert.Error(t, err)
}

func TestGeneratedDataIsLearnable(t *testing.T) {
	cfg := smallConfig()
	cfg.Samples = 4000
	ds, truth, err := Generate(cfg, rand.New(rand.NewSource(8)))
	require.NoError(t, err)
	train, test, err := Split(ds, DefaultTrainRatio)
	require.NoError(t, err)

	params, err := ml.NewParametersFrom(make([]float64, cfg.Features), 0)
	require.NoError(t, err)
	trainer, err := ml.NewTrainer(ml.WithEpochs(300), ml.WithLearningRate(0.5))
	require.NoError(t, err)
	require.NoError(t, trainer.Train(context.Background(), params, train))

	accuracy, err := ml.Accuracy(params.Snapshot(), test.Features, test.Labels)
	require.NoError(t, err)
	best, err := ml.Accuracy(ml.Snapshot{Weights: truth.Weights, Bias: truth.Bias}, test.Features, test.Labels)
	require.NoError(t, err)
	assert.Greater(t, accuracy, best-0.05)
}

func TestSplit(t *testing.T) {
	ds, _, err := Generate(smallConfig(), rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	train, test, err := Split(ds, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 400, train.Len())
	assert.Equal(t, 100, test.Len())
	assert.Equal(t, ds.Features[0], train.Features[0])
	assert.Equal(t, ds.Features[400], test.Features[0])

	_, _, err = Split(ml.Dataset{}, 0.8)
	assert.True(t, errors.Is(err, ml.ErrEmptyDataset))
	_, _, err = Split(ds, 0)
	assert.Error(t, err)
	_, _, err = Split(ds, 1.5)
	assert.Error(t, err)
}

func TestSplitShuffled(t *testing.T) {
	ds, _, err := Generate(smallConfig(), rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	train, test, err := SplitShuffled(ds, 0.75, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	assert.Equal(t, 375, train.Len())
	assert.Equal(t, 125, test.Len())
	assert.Len(t, train.Labels, 375)

	_, _, err = SplitShuffled(ds, 0.75, nil)
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	ds := ml.Dataset{
		Features: [][]float64{{1.5, -2}, {0.25, 3}},
		Labels:   []int{1, 0},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	assert.True(t, strings.HasPrefix(buf.String(), "label,x1,x2\n"))

	loaded, err := LoadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds, loaded)
}

func TestLoadCSVErrors(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("label,x1\n"))
	assert.True(t, errors.Is(err, ml.ErrEmptyDataset))

	_, err = LoadCSV(strings.NewReader("2,1.0\n"))
	assert.True(t, errors.Is(err, ml.ErrInvalidLabel))

	_, err = LoadCSV(strings.NewReader("1,abc\n"))
	assert.Error(t, err)

	_, err = LoadCSV(strings.NewReader("1\n0\n"))
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	first, _, hit, err := cache.Generate(smallConfig(), 10)
	require.NoError(t, err)
	assert.False(t, hit)

	second, _, hit, err := cache.Generate(smallConfig(), 10)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	_, _, hit, err = cache.Generate(smallConfig(), 11)
	require.NoError(t, err)
	assert.False(t, hit)
	_, _, _, err = cache.Generate(smallConfig(), 12)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}
