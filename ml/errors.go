package ml

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDimensionMismatch  = errors.New("feature vector length does not match parameter dimension")
	ErrEmptyDataset       = errors.New("dataset is empty")
	ErrDivergence         = errors.New("parameters diverged to a non-finite value")
	ErrLabelCountMismatch = errors.New("features and labels size mismatch")
	ErrInvalidLabel       = errors.New("label must be 0 or 1")
	ErrInvalidDimension   = errors.New("dimension must be positive")
	ErrInvalidOption      = errors.New("invalid training option")
)

// DimensionMismatchError reports the first row whose length differs from the
// parameter dimension. Row is -1 when the mismatch is not tied to a dataset row.
type DimensionMismatchError struct {
	Row  int
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%v: got %d, want %d", ErrDimensionMismatch, e.Got, e.Want)
	}
	return fmt.Sprintf("%v: row %d has %d features, want %d", ErrDimensionMismatch, e.Row, e.Got, e.Want)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// DivergenceError is returned when an update would leave a weight or the bias
// non-finite. Index is the offending weight, or -1 for the bias. The update is
// never applied, so the parameters still hold the last finite values.
type DivergenceError struct {
	Round int
	Index int
	Value float64
}

func (e *DivergenceError) Error() string {
	name := "bias"
	if e.Index >= 0 {
		name = fmt.Sprintf("weight[%d]", e.Index)
	}
	if e.Round < 0 {
		return fmt.Sprintf("%v: %s became %v", ErrDivergence, name, e.Value)
	}
	return fmt.Sprintf("%v: %s became %v at round %d, consider lowering the learning rate", ErrDivergence, name, e.Value, e.Round)
}

func (e *DivergenceError) Is(target error) bool {
	return target == ErrDivergence
}
