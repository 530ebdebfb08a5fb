package ml

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// partitionSize is the number of rows reduced into one partial gradient.
// Partition boundaries depend only on the dataset length, so the reduction
// order is the same for every worker count.
const partitionSize = 4096

// Trainer runs full-batch gradient descent on the logistic loss.
type Trainer struct {
	options TrainOptions
}

func NewTrainer(opts ...TrainOptionFunc) (*Trainer, error) {
	options := NewTrainOptions()
	for _, opt := range opts {
		opt(options)
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{options: *options}, nil
}

func (t *Trainer) Options() TrainOptions {
	return t.options
}

type partialGradient struct {
	dw []float64
	db float64
}

// Train updates params in place for exactly Epochs rounds. The dataset is
// validated before the first update. ctx is only checked between rounds; on
// cancellation params hold the result of the last completed round.
func (t *Trainer) Train(ctx context.Context, params *Parameters, ds Dataset) error {
	dim := params.Dim()
	if err := ds.Validate(dim); err != nil {
		return err
	}

	n := ds.Len()
	probabilities := make([]float64, n)
	partials := make([]partialGradient, (n+partitionSize-1)/partitionSize)
	for k := range partials {
		partials[k].dw = make([]float64, dim)
	}
	dw := make([]float64, dim)
	scale := t.options.LearningRate / float64(n)

	for round := 0; round < t.options.Epochs; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s := params.Snapshot()
		if err := t.accumulate(s, ds, probabilities, partials); err != nil {
			return err
		}

		for j := range dw {
			dw[j] = 0
		}
		var db float64
		for k := range partials {
			floats.Add(dw, partials[k].dw)
			db += partials[k].db
		}
		floats.Scale(scale, dw)

		if err := params.Apply(dw, scale*db); err != nil {
			var divergence *DivergenceError
			if errors.As(err, &divergence) {
				divergence.Round = round
			}
			return err
		}

		if t.options.OnRound != nil {
			if err := t.options.OnRound(round, params.Snapshot()); err != nil {
				return errors.Wrapf(err, "round hook failed at round %d", round)
			}
		}
	}
	return nil
}

func (t *Trainer) accumulate(s Snapshot, ds Dataset, probabilities []float64, partials []partialGradient) error {
	if t.options.Workers == 1 || len(partials) == 1 {
		for k := range partials {
			accumulatePartition(s, ds, probabilities, &partials[k], k)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(t.options.Workers)
	for k := range partials {
		k := k
		g.Go(func() error {
			accumulatePartition(s, ds, probabilities, &partials[k], k)
			return nil
		})
	}
	return g.Wait()
}

// accumulatePartition fills part with Σ error_i·x_i and Σ error_i over the
// rows of partition k.
func accumulatePartition(s Snapshot, ds Dataset, probabilities []float64, part *partialGradient, k int) {
	lo := k * partitionSize
	hi := lo + partitionSize
	if hi > ds.Len() {
		hi = ds.Len()
	}

	for j := range part.dw {
		part.dw[j] = 0
	}
	part.db = 0

	predictInto(s, ds.Features[lo:hi], probabilities[lo:hi])
	for i := lo; i < hi; i++ {
		e := probabilities[i] - float64(ds.Labels[i])
		floats.AddScaled(part.dw, e, ds.Features[i])
		part.db += e
	}
}

// Fit creates parameters sized to ds and trains them. On a training error
// the returned parameters hold the last valid values.
func Fit(ctx context.Context, ds Dataset, rng *rand.Rand, opts ...TrainOptionFunc) (*Parameters, error) {
	trainer, err := NewTrainer(opts...)
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	params, err := NewParameters(ds.Dim(), rng)
	if err != nil {
		return nil, err
	}
	return params, trainer.Train(ctx, params, ds)
}
