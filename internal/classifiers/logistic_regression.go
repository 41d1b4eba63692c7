package classifiers

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	defaultInverseRegularizationConstant = 1.0
	defaultLogisticIterationsConstant    = 1000
	logisticGradientToleranceConstant    = 1e-6
	logisticLipschitzFactorConstant      = 0.25
)

// LogisticRegression is an L2-regularised logistic model fitted with full-batch gradient descent.
// The step size is the inverse Lipschitz bound of the objective so the descent never diverges on
// unscaled features.
type LogisticRegression struct {
	C          float64   `json:"c" cbor:"c"`
	Iterations int       `json:"iterations" cbor:"iterations"`
	Weights    []float64 `json:"weights" cbor:"weights"`
	Bias       float64   `json:"bias" cbor:"bias"`
}

// Kind identifies the classifier.
func (model *LogisticRegression) Kind() Kind {
	return KindLogisticRegression
}

// Fit minimises mean log-loss + ||w||² / (2·C·n).
func (model *LogisticRegression) Fit(rows [][]float64, labels []bool) error {
	if validationError := validateTrainingSet(rows, labels); validationError != nil {
		return validationError
	}
	if model.C <= 0 {
		model.C = defaultInverseRegularizationConstant
	}
	if model.Iterations <= 0 {
		model.Iterations = defaultLogisticIterationsConstant
	}

	sampleCount := float64(len(rows))
	featureCount := len(rows[0])
	regularization := 1 / (model.C * sampleCount)

	squaredNormSum := 0.0
	for _, row := range rows {
		squaredNormSum += floats.Dot(row, row) + 1
	}
	lipschitz := logisticLipschitzFactorConstant*squaredNormSum/sampleCount + regularization
	stepSize := 1 / lipschitz

	model.Weights = make([]float64, featureCount)
	model.Bias = 0
	gradient := make([]float64, featureCount)
	for iteration := 0; iteration < model.Iterations; iteration++ {
		for index := range gradient {
			gradient[index] = 0
		}
		biasGradient := 0.0
		for rowIndex, row := range rows {
			residual := sigmoid(floats.Dot(model.Weights, row)+model.Bias) - labelValue(labels[rowIndex])
			floats.AddScaled(gradient, residual, row)
			biasGradient += residual
		}
		floats.Scale(1/sampleCount, gradient)
		biasGradient /= sampleCount
		floats.AddScaled(gradient, regularization, model.Weights)

		gradientNorm := math.Sqrt(floats.Dot(gradient, gradient) + biasGradient*biasGradient)
		if gradientNorm < logisticGradientToleranceConstant {
			break
		}
		floats.AddScaled(model.Weights, -stepSize, gradient)
		model.Bias -= stepSize * biasGradient
	}
	return nil
}

// Probability applies the logistic link to the linear score.
func (model *LogisticRegression) Probability(row []float64) float64 {
	if len(model.Weights) != len(row) {
		return 0
	}
	return sigmoid(floats.Dot(model.Weights, row) + model.Bias)
}
