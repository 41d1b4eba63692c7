package classifiers

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

const (
	minimumPegasosIterationsConstant = 1000
	pegasosEpochsConstant            = 20
)

// SupportVectorMachine is a linear SVM trained with the Pegasos sub-gradient method. The bias is
// learned as the weight of a constant feature. Probability is the logistic of the margin.
type SupportVectorMachine struct {
	C          float64   `json:"c" cbor:"c"`
	Iterations int       `json:"iterations" cbor:"iterations"`
	Seed       uint64    `json:"seed" cbor:"seed"`
	Weights    []float64 `json:"weights" cbor:"weights"`
	Bias       float64   `json:"bias" cbor:"bias"`
}

// Kind identifies the classifier.
func (model *SupportVectorMachine) Kind() Kind {
	return KindSupportVector
}

// Fit runs Pegasos with λ = 1/(C·n).
func (model *SupportVectorMachine) Fit(rows [][]float64, labels []bool) error {
	if validationError := validateTrainingSet(rows, labels); validationError != nil {
		return validationError
	}
	if model.C <= 0 {
		model.C = defaultInverseRegularizationConstant
	}
	if model.Iterations <= 0 {
		model.Iterations = max(minimumPegasosIterationsConstant, pegasosEpochsConstant*len(rows))
	}

	featureCount := len(rows[0])
	lambda := 1 / (model.C * float64(len(rows)))
	radius := 1 / math.Sqrt(lambda)
	randomSource := rand.New(rand.NewPCG(model.Seed, model.Seed+2))

	weights := make([]float64, featureCount+1)
	augmented := make([]float64, featureCount+1)
	for iteration := 1; iteration <= model.Iterations; iteration++ {
		sampleIndex := randomSource.IntN(len(rows))
		copy(augmented, rows[sampleIndex])
		augmented[featureCount] = 1
		sign := labelSign(labels[sampleIndex])

		stepSize := 1 / (lambda * float64(iteration))
		margin := sign * floats.Dot(weights, augmented)
		floats.Scale(1-stepSize*lambda, weights)
		if margin < 1 {
			floats.AddScaled(weights, stepSize*sign, augmented)
		}

		norm := floats.Norm(weights, 2)
		if norm > radius {
			floats.Scale(radius/norm, weights)
		}
	}

	model.Weights = weights[:featureCount]
	model.Bias = weights[featureCount]
	return nil
}

// Margin returns the signed distance proxy w·x + b.
func (model *SupportVectorMachine) Margin(row []float64) float64 {
	if len(model.Weights) != len(row) {
		return 0
	}
	return floats.Dot(model.Weights, row) + model.Bias
}

// Probability maps the margin through the logistic function.
func (model *SupportVectorMachine) Probability(row []float64) float64 {
	if len(model.Weights) != len(row) {
		return 0
	}
	return sigmoid(model.Margin(row))
}
