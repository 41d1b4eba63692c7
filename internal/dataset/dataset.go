package dataset

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// DefaultLabelColumn is the column holding the failure-prone flag.
	DefaultLabelColumn = "failure_prone"

	minimumRowCountConstant          = 2
	invalidDatasetTemplateConstant   = "invalid dataset: %s"
	subsetIndexOutOfRangeTemplate    = "row index %d out of range [0,%d)"
	missingLabelColumnTemplate       = "label column %q not found"
	tooFewRowsTemplateConstant       = "at least %d rows are required, found %d"
	noUsableFeaturesMessageConstant  = "no numeric feature columns"
	singleClassMessageConstant       = "both failure-prone and clean rows are required"
	invalidLabelTemplateConstant     = "row %d: invalid label %q"
	rowWidthMismatchTemplateConstant = "row %d: expected %d fields, found %d"
)

// ErrSingleClass indicates the labels contain only one class.
var ErrSingleClass = errors.New(singleClassMessageConstant)

// InvalidDatasetError reports structural problems with loaded data.
type InvalidDatasetError struct {
	Reason string
	Cause  error
}

// Error describes the dataset problem.
func (datasetError InvalidDatasetError) Error() string {
	if datasetError.Cause != nil {
		return fmt.Sprintf(invalidDatasetTemplateConstant, datasetError.Cause.Error())
	}
	return fmt.Sprintf(invalidDatasetTemplateConstant, datasetError.Reason)
}

// Unwrap exposes the underlying cause.
func (datasetError InvalidDatasetError) Unwrap() error {
	return datasetError.Cause
}

// Dataset is a dense numeric feature matrix with binary labels.
type Dataset struct {
	FeatureNames   []string
	Rows           [][]float64
	Labels         []bool
	SkippedColumns []string
}

// ClassCounts is the number of rows per label.
type ClassCounts struct {
	Positive int
	Negative int
}

// Minority returns the size of the smaller class.
func (counts ClassCounts) Minority() int {
	if counts.Positive < counts.Negative {
		return counts.Positive
	}
	return counts.Negative
}

// Len returns the number of rows.
func (dataset *Dataset) Len() int {
	return len(dataset.Rows)
}

// ClassCounts tallies positive (failure-prone) and negative rows.
func (dataset *Dataset) ClassCounts() ClassCounts {
	var counts ClassCounts
	for _, label := range dataset.Labels {
		if label {
			counts.Positive++
		} else {
			counts.Negative++
		}
	}
	return counts
}

// Validate checks the dataset is usable for supervised training.
func (dataset *Dataset) Validate() error {
	if len(dataset.FeatureNames) == 0 {
		return InvalidDatasetError{Reason: noUsableFeaturesMessageConstant}
	}
	if dataset.Len() < minimumRowCountConstant {
		return InvalidDatasetError{Reason: fmt.Sprintf(tooFewRowsTemplateConstant, minimumRowCountConstant, dataset.Len())}
	}
	counts := dataset.ClassCounts()
	if counts.Positive == 0 || counts.Negative == 0 {
		return InvalidDatasetError{Cause: ErrSingleClass}
	}
	return nil
}

// Subset returns a dataset holding the given rows in order. Row slices are shared, not copied.
func (dataset *Dataset) Subset(indices []int) (*Dataset, error) {
	subset := &Dataset{
		FeatureNames: dataset.FeatureNames,
		Rows:         make([][]float64, 0, len(indices)),
		Labels:       make([]bool, 0, len(indices)),
	}
	for _, index := range indices {
		if index < 0 || index >= dataset.Len() {
			return nil, fmt.Errorf(subsetIndexOutOfRangeTemplate, index, dataset.Len())
		}
		subset.Rows = append(subset.Rows, dataset.Rows[index])
		subset.Labels = append(subset.Labels, dataset.Labels[index])
	}
	return subset, nil
}

// Project reorders a named feature vector to match featureNames. Unknown features become zero and
// are reported as missing, sorted by name.
func Project(featureValues map[string]float64, featureNames []string) ([]float64, []string) {
	projected := make([]float64, len(featureNames))
	var missing []string
	for index, featureName := range featureNames {
		value, found := featureValues[featureName]
		if !found {
			missing = append(missing, featureName)
			continue
		}
		projected[index] = value
	}
	sort.Strings(missing)
	return projected, missing
}
