package artifact

import (
	"errors"
	"fmt"

	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
)

const (
	featureCountMismatchTemplate = "model expects %d features, got %d"
	missingClassifierMessage     = "model has no classifier"
	invalidNormalizerTemplate    = "invalid normalizer: %w"
)

// ErrMissingClassifier indicates a model without a fitted classifier.
var ErrMissingClassifier = errors.New(missingClassifierMessage)

// Model is a fitted pipeline: the balancer it was trained with, the fitted normalizer and the
// fitted classifier, applied to rows ordered as FeatureNames.
type Model struct {
	Balancer     preprocess.Balancer
	Normalizer   preprocess.Normalizer
	Classifier   classifiers.Classifier
	FeatureNames []string
}

// Validate checks the restored normalizer and classifier against featureCount. A featureCount of
// zero checks internal consistency only.
func (model *Model) Validate(featureCount int) error {
	if model.Classifier == nil {
		return ErrMissingClassifier
	}
	if normalizerError := model.Normalizer.Validate(featureCount); normalizerError != nil {
		return fmt.Errorf(invalidNormalizerTemplate, normalizerError)
	}
	return model.Classifier.Validate(featureCount)
}

// Probability normalizes row and returns the positive-class probability.
func (model *Model) Probability(row []float64) (float64, error) {
	if model.Classifier == nil {
		return 0, ErrMissingClassifier
	}
	if len(model.FeatureNames) > 0 && len(row) != len(model.FeatureNames) {
		return 0, fmt.Errorf(featureCountMismatchTemplate, len(model.FeatureNames), len(row))
	}
	normalizedRow, transformError := model.Normalizer.Transform(row)
	if transformError != nil {
		return 0, transformError
	}
	return model.Classifier.Probability(normalizedRow), nil
}

// Predict reports whether row is failure-prone together with its probability.
func (model *Model) Predict(row []float64) (bool, float64, error) {
	probability, probabilityError := model.Probability(row)
	if probabilityError != nil {
		return false, 0, probabilityError
	}
	return probability >= 0.5, probability, nil
}
