package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"perceptron/ml"
)

const DefaultTrainRatio = 0.8

// Split keeps the first trainRatio of the rows for training and the rest for
// testing. Rows are shared with ds, not copied.
func Split(ds ml.Dataset, trainRatio float64) (train, test ml.Dataset, err error) {
	if err := checkSplit(ds, trainRatio); err != nil {
		return ml.Dataset{}, ml.Dataset{}, err
	}
	cut := int(float64(ds.Len()) * trainRatio)
	train = ml.Dataset{Features: ds.Features[:cut], Labels: ds.Labels[:cut]}
	test = ml.Dataset{Features: ds.Features[cut:], Labels: ds.Labels[cut:]}
	return train, test, nil
}

// SplitShuffled permutes the rows with rng before splitting.
func SplitShuffled(ds ml.Dataset, trainRatio float64, rng *rand.Rand) (train, test ml.Dataset, err error) {
	if err := checkSplit(ds, trainRatio); err != nil {
		return ml.Dataset{}, ml.Dataset{}, err
	}
	if rng == nil {
		return ml.Dataset{}, ml.Dataset{}, errors.New("rng is required")
	}

	cut := int(math.Round(float64(ds.Len()) * trainRatio))
	for i, idx := range rng.Perm(ds.Len()) {
		if i < cut {
			train.Features = append(train.Features, ds.Features[idx])
			train.Labels = append(train.Labels, ds.Labels[idx])
		} else {
			test.Features = append(test.Features, ds.Features[idx])
			test.Labels = append(test.Labels, ds.Labels[idx])
		}
	}
	return train, test, nil
}

func checkSplit(ds ml.Dataset, trainRatio float64) error {
	if ds.Len() == 0 {
		return ml.ErrEmptyDataset
	}
	if ds.Len() != len(ds.Labels) {
		return ml.ErrLabelCountMismatch
	}
	if !(trainRatio > 0 && trainRatio <= 1) {
		return errors.Errorf("train ratio must be within (0, 1], got %v", trainRatio)
	}
	return nil
}
