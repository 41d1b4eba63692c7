package preprocess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

// NormalizerKind names a feature scaling strategy.
type NormalizerKind string

// Supported normalizers.
const (
	NormalizerNone         NormalizerKind = "none"
	NormalizerMinMax       NormalizerKind = "minmax"
	NormalizerStandardized NormalizerKind = "std"
)

const (
	unsupportedNormalizerTemplateConstant = "unsupported normalizer %q"
	featureWidthMismatchTemplateConstant  = "row has %d features, normalizer expects %d"
	parameterCountTemplateConstant        = "normalizer has %d offsets and %d scales"
	parameterWidthTemplateConstant        = "normalizer has %d parameters for %d features"
	nonFiniteParameterMessageConstant     = "normalizer parameters must be finite"
)

// NormalizerChoices lists the accepted normalizer names in canonical order.
func NormalizerChoices() []string {
	return []string{string(NormalizerNone), string(NormalizerMinMax), string(NormalizerStandardized)}
}

// ParseNormalizers validates a space separated normalizer list. An empty list yields [none].
func ParseNormalizers(rawValue string) ([]NormalizerKind, error) {
	parsedChoices, parseError := flags.ParseChoiceList(rawValue, NormalizerChoices())
	if parseError != nil {
		return nil, parseError
	}
	if len(parsedChoices) == 0 {
		return []NormalizerKind{NormalizerNone}, nil
	}
	normalizers := make([]NormalizerKind, 0, len(parsedChoices))
	for _, parsedChoice := range parsedChoices {
		normalizers = append(normalizers, NormalizerKind(parsedChoice))
	}
	return normalizers, nil
}

// Normalizer holds fitted per-feature parameters: x' = (x - Offset) / Scale. A zero scale maps the
// feature to zero.
type Normalizer struct {
	Kind    NormalizerKind `json:"kind" cbor:"kind"`
	Offsets []float64      `json:"offsets,omitempty" cbor:"offsets,omitempty"`
	Scales  []float64      `json:"scales,omitempty" cbor:"scales,omitempty"`
}

// FitNormalizer learns scaling parameters from the training rows.
func FitNormalizer(kind NormalizerKind, rows [][]float64) (Normalizer, error) {
	switch kind {
	case NormalizerNone, "":
		return Normalizer{Kind: NormalizerNone}, nil
	case NormalizerMinMax, NormalizerStandardized:
	default:
		return Normalizer{}, fmt.Errorf(unsupportedNormalizerTemplateConstant, kind)
	}
	if len(rows) == 0 {
		return Normalizer{Kind: kind}, nil
	}

	featureCount := len(rows[0])
	fitted := Normalizer{
		Kind:    kind,
		Offsets: make([]float64, featureCount),
		Scales:  make([]float64, featureCount),
	}
	column := make([]float64, len(rows))
	for featureIndex := 0; featureIndex < featureCount; featureIndex++ {
		for rowIndex, row := range rows {
			column[rowIndex] = row[featureIndex]
		}
		if kind == NormalizerMinMax {
			minimum := floats.Min(column)
			fitted.Offsets[featureIndex] = minimum
			fitted.Scales[featureIndex] = floats.Max(column) - minimum
			continue
		}
		mean, variance := stat.PopMeanVariance(column, nil)
		fitted.Offsets[featureIndex] = mean
		fitted.Scales[featureIndex] = math.Sqrt(variance)
	}
	return fitted, nil
}

// Validate checks a restored normalizer: a known kind, one offset per scale, and one parameter
// per feature when featureCount is positive.
func (normalizer Normalizer) Validate(featureCount int) error {
	switch normalizer.Kind {
	case NormalizerNone, "":
		return nil
	case NormalizerMinMax, NormalizerStandardized:
	default:
		return fmt.Errorf(unsupportedNormalizerTemplateConstant, normalizer.Kind)
	}
	if len(normalizer.Offsets) != len(normalizer.Scales) {
		return fmt.Errorf(parameterCountTemplateConstant, len(normalizer.Offsets), len(normalizer.Scales))
	}
	if featureCount > 0 && len(normalizer.Scales) > 0 && len(normalizer.Scales) != featureCount {
		return fmt.Errorf(parameterWidthTemplateConstant, len(normalizer.Scales), featureCount)
	}
	for parameterIndex, scale := range normalizer.Scales {
		offset := normalizer.Offsets[parameterIndex]
		if math.IsNaN(scale) || math.IsInf(scale, 0) || math.IsNaN(offset) || math.IsInf(offset, 0) {
			return errors.New(nonFiniteParameterMessageConstant)
		}
	}
	return nil
}

// Transform returns a scaled copy of row.
func (normalizer Normalizer) Transform(row []float64) ([]float64, error) {
	transformed := make([]float64, len(row))
	if normalizer.Kind == NormalizerNone || len(normalizer.Scales) == 0 {
		copy(transformed, row)
		return transformed, nil
	}
	if len(normalizer.Offsets) != len(normalizer.Scales) {
		return nil, fmt.Errorf(parameterCountTemplateConstant, len(normalizer.Offsets), len(normalizer.Scales))
	}
	if len(row) != len(normalizer.Scales) {
		return nil, fmt.Errorf(featureWidthMismatchTemplateConstant, len(row), len(normalizer.Scales))
	}
	for featureIndex, value := range row {
		scale := normalizer.Scales[featureIndex]
		if scale == 0 {
			continue
		}
		transformed[featureIndex] = (value - normalizer.Offsets[featureIndex]) / scale
	}
	return transformed, nil
}

// TransformAll scales every row.
func (normalizer Normalizer) TransformAll(rows [][]float64) ([][]float64, error) {
	transformedRows := make([][]float64, len(rows))
	for rowIndex, row := range rows {
		transformedRow, transformError := normalizer.Transform(row)
		if transformError != nil {
			return nil, transformError
		}
		transformedRows[rowIndex] = transformedRow
	}
	return transformedRows, nil
}
