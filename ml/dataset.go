package ml

// Dataset is an ordered set of feature vectors and their binary labels.
// The core never mutates it.
type Dataset struct {
	Features [][]float64
	Labels   []int
}

func (d Dataset) Len() int {
	return len(d.Features)
}

// Dim returns the length of the first feature vector, or 0 for an empty dataset.
func (d Dataset) Dim() int {
	if len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

// Validate checks that the dataset is non-empty, every vector has dim
// entries and every label is 0 or 1.
func (d Dataset) Validate(dim int) error {
	if len(d.Features) == 0 {
		return ErrEmptyDataset
	}
	if len(d.Features) != len(d.Labels) {
		return ErrLabelCountMismatch
	}
	if err := checkDims(d.Features, dim); err != nil {
		return err
	}
	return checkLabels(d.Labels)
}

func checkDims(features [][]float64, dim int) error {
	for i, x := range features {
		if len(x) != dim {
			return &DimensionMismatchError{Row: i, Got: len(x), Want: dim}
		}
	}
	return nil
}

func checkLabels(labels []int) error {
	for _, y := range labels {
		if y != 0 && y != 1 {
			return ErrInvalidLabel
		}
	}
	return nil
}
