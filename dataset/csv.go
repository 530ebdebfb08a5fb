package dataset

import (
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"perceptron/ml"
)

// LoadCSV reads rows of the form label,x1,...,xD. A first row whose label
// column is not an integer is treated as a header and skipped.
func LoadCSV(r io.Reader) (ml.Dataset, error) {
	records, err := gocsv.LazyCSVReader(r).ReadAll()
	if err != nil {
		return ml.Dataset{}, errors.Wrap(err, "failed to read csv")
	}
	if len(records) > 0 {
		if _, err := strconv.Atoi(records[0][0]); err != nil {
			records = records[1:]
		}
	}
	if len(records) == 0 {
		return ml.Dataset{}, ml.ErrEmptyDataset
	}

	dim := len(records[0]) - 1
	if dim < 1 {
		return ml.Dataset{}, errors.New("csv rows need a label and at least one feature")
	}
	ds := ml.Dataset{
		Features: make([][]float64, len(records)),
		Labels:   make([]int, len(records)),
	}
	for i, record := range records {
		if len(record)-1 != dim {
			return ml.Dataset{}, &ml.DimensionMismatchError{Row: i, Got: len(record) - 1, Want: dim}
		}
		label, err := strconv.Atoi(record[0])
		if err != nil {
			return ml.Dataset{}, errors.Wrapf(err, "row %d: bad label", i)
		}
		if label != 0 && label != 1 {
			return ml.Dataset{}, errors.Wrapf(ml.ErrInvalidLabel, "row %d", i)
		}
		x := make([]float64, dim)
		for j, field := range record[1:] {
			if x[j], err = strconv.ParseFloat(field, 64); err != nil {
				return ml.Dataset{}, errors.Wrapf(err, "row %d column %d", i, j+1)
			}
		}
		ds.Features[i] = x
		ds.Labels[i] = label
	}
	return ds, nil
}

// WriteCSV writes ds in the format LoadCSV reads, with a header row.
func WriteCSV(w io.Writer, ds ml.Dataset) error {
	if ds.Len() != len(ds.Labels) {
		return ml.ErrLabelCountMismatch
	}
	out := gocsv.DefaultCSVWriter(w)

	header := make([]string, ds.Dim()+1)
	header[0] = "label"
	for j := 1; j < len(header); j++ {
		header[j] = "x" + strconv.Itoa(j)
	}
	if err := out.Write(header); err != nil {
		return err
	}

	for i, x := range ds.Features {
		row := make([]string, len(x)+1)
		row[0] = strconv.Itoa(ds.Labels[i])
		for j, v := range x {
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
