package evaluation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

// Metric names a model selection score.
type Metric string

// Supported metrics.
const (
	MetricAccuracy  Metric = "accuracy"
	MetricPrecision Metric = "precision"
	MetricRecall    Metric = "recall"
	MetricF1        Metric = "f1"
	MetricMCC       Metric = "mcc"
	MetricROCAUC    Metric = "roc_auc"

	// DefaultMetric selects the best pipeline when none is configured.
	DefaultMetric = MetricF1

	decisionThresholdConstant   = 0.5
	neutralAreaUnderCurve       = 0.5
	unsupportedMetricTemplate   = "unsupported metric %q"
	predictionLengthMismatchMsg = "got %d labels but %d probabilities"
)

// MetricChoices lists the accepted metric names.
func MetricChoices() []string {
	return []string{
		string(MetricAccuracy),
		string(MetricPrecision),
		string(MetricRecall),
		string(MetricF1),
		string(MetricMCC),
		string(MetricROCAUC),
	}
}

// ParseMetric validates a metric name. An empty value yields DefaultMetric.
func ParseMetric(rawValue string) (Metric, error) {
	if len(strings.TrimSpace(rawValue)) == 0 {
		return DefaultMetric, nil
	}
	parsedChoice, parseError := flags.ParseChoice(rawValue, MetricChoices())
	if parseError != nil {
		return "", parseError
	}
	return Metric(parsedChoice), nil
}

// ConfusionMatrix counts predictions by outcome.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// Scores holds every supported metric for one evaluation.
type Scores struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	MCC       float64 `json:"mcc"`
	ROCAUC    float64 `json:"roc_auc"`
}

// Value returns the score for metric.
func (scores Scores) Value(metric Metric) (float64, error) {
	switch metric {
	case MetricAccuracy:
		return scores.Accuracy, nil
	case MetricPrecision:
		return scores.Precision, nil
	case MetricRecall:
		return scores.Recall, nil
	case MetricF1:
		return scores.F1, nil
	case MetricMCC:
		return scores.MCC, nil
	case MetricROCAUC:
		return scores.ROCAUC, nil
	default:
		return 0, fmt.Errorf(unsupportedMetricTemplate, metric)
	}
}

// Confusion tallies predicted against actual labels.
func Confusion(actual []bool, predicted []bool) ConfusionMatrix {
	var matrix ConfusionMatrix
	for index, actualLabel := range actual {
		switch {
		case actualLabel && predicted[index]:
			matrix.TruePositives++
		case actualLabel:
			matrix.FalseNegatives++
		case predicted[index]:
			matrix.FalsePositives++
		default:
			matrix.TrueNegatives++
		}
	}
	return matrix
}

// Score evaluates positive-class probabilities against the actual labels. Predictions use a 0.5
// threshold. Undefined ratios score 0.
func Score(actual []bool, probabilities []float64) (Scores, error) {
	if len(actual) != len(probabilities) {
		return Scores{}, fmt.Errorf(predictionLengthMismatchMsg, len(actual), len(probabilities))
	}
	predicted := make([]bool, len(probabilities))
	for index, probability := range probabilities {
		predicted[index] = probability >= decisionThresholdConstant
	}

	matrix := Confusion(actual, predicted)
	truePositives := float64(matrix.TruePositives)
	falsePositives := float64(matrix.FalsePositives)
	trueNegatives := float64(matrix.TrueNegatives)
	falseNegatives := float64(matrix.FalseNegatives)

	scores := Scores{
		Accuracy:  safeRatio(truePositives+trueNegatives, float64(len(actual))),
		Precision: safeRatio(truePositives, truePositives+falsePositives),
		Recall:    safeRatio(truePositives, truePositives+falseNegatives),
		ROCAUC:    AreaUnderROC(actual, probabilities),
	}
	scores.F1 = safeRatio(2*scores.Precision*scores.Recall, scores.Precision+scores.Recall)

	denominator := math.Sqrt((truePositives + falsePositives) * (truePositives + falseNegatives) *
		(trueNegatives + falsePositives) * (trueNegatives + falseNegatives))
	scores.MCC = safeRatio(truePositives*trueNegatives-falsePositives*falseNegatives, denominator)
	return scores, nil
}

// AreaUnderROC computes the Mann-Whitney estimate of ROC AUC with tied scores sharing the average
// rank. A single-class input yields 0.5.
func AreaUnderROC(actual []bool, probabilities []float64) float64 {
	order := make([]int, len(probabilities))
	for index := range order {
		order[index] = index
	}
	sort.SliceStable(order, func(left int, right int) bool {
		return probabilities[order[left]] < probabilities[order[right]]
	})

	positives := 0
	positiveRankSum := 0.0
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && probabilities[order[end]] == probabilities[order[start]] {
			end++
		}
		averageRank := float64(start+end+1) / 2
		for position := start; position < end; position++ {
			if actual[order[position]] {
				positives++
				positiveRankSum += averageRank
			}
		}
		start = end
	}

	negatives := len(actual) - positives
	if positives == 0 || negatives == 0 {
		return neutralAreaUnderCurve
	}
	positiveCount := float64(positives)
	return (positiveRankSum - positiveCount*(positiveCount+1)/2) / (positiveCount * float64(negatives))
}

// MeanScores averages scores metric by metric.
func MeanScores(collected []Scores) Scores {
	if len(collected) == 0 {
		return Scores{}
	}
	var total Scores
	for _, scores := range collected {
		total.Accuracy += scores.Accuracy
		total.Precision += scores.Precision
		total.Recall += scores.Recall
		total.F1 += scores.F1
		total.MCC += scores.MCC
		total.ROCAUC += scores.ROCAUC
	}
	count := float64(len(collected))
	return Scores{
		Accuracy:  total.Accuracy / count,
		Precision: total.Precision / count,
		Recall:    total.Recall / count,
		F1:        total.F1 / count,
		MCC:       total.MCC / count,
		ROCAUC:    total.ROCAUC / count,
	}
}

func safeRatio(numerator float64, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
