package classifiers

import (
	"errors"
	"fmt"
	"math"

	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

// Kind names a classifier family.
type Kind string

// Supported classifier kinds.
const (
	KindDecisionTree       Kind = "dt"
	KindLogisticRegression Kind = "logit"
	KindNaiveBayes         Kind = "nb"
	KindRandomForest       Kind = "rf"
	KindSupportVector      Kind = "svm"
)

const (
	// DefaultTreeCount is the number of trees in a random forest.
	DefaultTreeCount = 100

	decisionThresholdConstant       = 0.5
	unsupportedKindTemplateConstant = "unsupported classifier %q"
	emptyTrainingSetMessage         = "training set is empty"
	labelCountMismatchTemplate      = "got %d rows but %d labels"
)

// ErrEmptyTrainingSet indicates Fit was called without rows.
var ErrEmptyTrainingSet = errors.New(emptyTrainingSetMessage)

// Classifier is a fitted or fittable binary model. Probability returns the estimated probability
// that a row belongs to the positive (failure-prone) class. Validate checks restored state against
// the expected feature count (zero when unknown) before Probability may be called on it.
type Classifier interface {
	Kind() Kind
	Fit(rows [][]float64, labels []bool) error
	Probability(row []float64) float64
	Validate(featureCount int) error
}

// Options tunes classifier construction.
type Options struct {
	Seed      uint64
	TreeCount int
	MaxDepth  int
}

// Predict applies the 0.5 decision threshold.
func Predict(classifier Classifier, row []float64) bool {
	return classifier.Probability(row) >= decisionThresholdConstant
}

// KindChoices lists the accepted classifier names in canonical order.
func KindChoices() []string {
	return []string{
		string(KindDecisionTree),
		string(KindLogisticRegression),
		string(KindNaiveBayes),
		string(KindRandomForest),
		string(KindSupportVector),
	}
}

// ParseKinds validates a space separated classifier list such as "dt logit nb rf svm". An empty
// list yields every classifier.
func ParseKinds(rawValue string) ([]Kind, error) {
	parsedChoices, parseError := flags.ParseChoiceList(rawValue, KindChoices())
	if parseError != nil {
		return nil, parseError
	}
	if len(parsedChoices) == 0 {
		parsedChoices = KindChoices()
	}
	kinds := make([]Kind, 0, len(parsedChoices))
	for _, parsedChoice := range parsedChoices {
		kinds = append(kinds, Kind(parsedChoice))
	}
	return kinds, nil
}

// New constructs an unfitted classifier of the requested kind.
func New(kind Kind, options Options) (Classifier, error) {
	switch kind {
	case KindDecisionTree:
		return &DecisionTree{MaxDepth: options.MaxDepth, Seed: options.Seed}, nil
	case KindLogisticRegression:
		return &LogisticRegression{}, nil
	case KindNaiveBayes:
		return &NaiveBayes{}, nil
	case KindRandomForest:
		treeCount := options.TreeCount
		if treeCount <= 0 {
			treeCount = DefaultTreeCount
		}
		return &RandomForest{TreeCount: treeCount, MaxDepth: options.MaxDepth, Seed: options.Seed}, nil
	case KindSupportVector:
		return &SupportVectorMachine{Seed: options.Seed}, nil
	default:
		return nil, fmt.Errorf(unsupportedKindTemplateConstant, kind)
	}
}

func validateTrainingSet(rows [][]float64, labels []bool) error {
	if len(rows) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(rows) != len(labels) {
		return fmt.Errorf(labelCountMismatchTemplate, len(rows), len(labels))
	}
	return nil
}

func sigmoid(value float64) float64 {
	if value >= 0 {
		return 1 / (1 + math.Exp(-value))
	}
	exponent := math.Exp(value)
	return exponent / (1 + exponent)
}

func labelSign(label bool) float64 {
	if label {
		return 1
	}
	return -1
}

func labelValue(label bool) float64 {
	if label {
		return 1
	}
	return 0
}
