package classifiers

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const varianceSmoothingConstant = 1e-9

// NaiveBayes is a Gaussian naive Bayes classifier. Index 0 of each per-class slice is the negative
// class and index 1 the positive class.
type NaiveBayes struct {
	ClassPriors    [2]float64   `json:"class_priors" cbor:"class_priors"`
	ClassMeans     [2][]float64 `json:"class_means" cbor:"class_means"`
	ClassVariances [2][]float64 `json:"class_variances" cbor:"class_variances"`
}

// Kind identifies the classifier.
func (model *NaiveBayes) Kind() Kind {
	return KindNaiveBayes
}

// Fit estimates per-class feature means and variances. Variances are smoothed by 1e-9 times the
// largest feature variance.
func (model *NaiveBayes) Fit(rows [][]float64, labels []bool) error {
	if validationError := validateTrainingSet(rows, labels); validationError != nil {
		return validationError
	}

	featureCount := len(rows[0])
	column := make([]float64, len(rows))
	largestVariance := 0.0
	for featureIndex := 0; featureIndex < featureCount; featureIndex++ {
		for rowIndex, row := range rows {
			column[rowIndex] = row[featureIndex]
		}
		largestVariance = math.Max(largestVariance, stat.PopVariance(column, nil))
	}
	smoothing := varianceSmoothingConstant * largestVariance

	for classIndex := 0; classIndex < 2; classIndex++ {
		classColumn := make([]float64, 0, len(rows))
		model.ClassMeans[classIndex] = make([]float64, featureCount)
		model.ClassVariances[classIndex] = make([]float64, featureCount)
		classRowCount := 0
		for featureIndex := 0; featureIndex < featureCount; featureIndex++ {
			classColumn = classColumn[:0]
			for rowIndex, row := range rows {
				if labels[rowIndex] == (classIndex == 1) {
					classColumn = append(classColumn, row[featureIndex])
				}
			}
			classRowCount = len(classColumn)
			if classRowCount == 0 {
				continue
			}
			mean, variance := stat.PopMeanVariance(classColumn, nil)
			model.ClassMeans[classIndex][featureIndex] = mean
			model.ClassVariances[classIndex][featureIndex] = variance + smoothing
		}
		model.ClassPriors[classIndex] = float64(classRowCount) / float64(len(rows))
	}
	return nil
}

// Probability is the posterior of the positive class.
func (model *NaiveBayes) Probability(row []float64) float64 {
	if model.ClassPriors[1] == 0 {
		return 0
	}
	if model.ClassPriors[0] == 0 {
		return 1
	}
	logOdds := model.logJoint(1, row) - model.logJoint(0, row)
	if math.IsNaN(logOdds) {
		return model.ClassPriors[1]
	}
	return sigmoid(logOdds)
}

func (model *NaiveBayes) logJoint(classIndex int, row []float64) float64 {
	logLikelihood := math.Log(model.ClassPriors[classIndex])
	means := model.ClassMeans[classIndex]
	variances := model.ClassVariances[classIndex]
	for featureIndex, value := range row {
		if featureIndex >= len(means) {
			break
		}
		variance := variances[featureIndex]
		if variance <= 0 {
			if value == means[featureIndex] {
				continue
			}
			return math.Inf(-1)
		}
		deviation := value - means[featureIndex]
		logLikelihood -= 0.5*math.Log(2*math.Pi*variance) + deviation*deviation/(2*variance)
	}
	return logLikelihood
}
