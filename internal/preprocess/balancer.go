package preprocess

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

// Balancer names a class balancing strategy.
type Balancer string

// Supported balancers.
const (
	BalancerNone                Balancer = "none"
	BalancerRandomUnderSampling Balancer = "rus"
	BalancerRandomOverSampling  Balancer = "ros"
)

const unsupportedBalancerTemplateConstant = "unsupported balancer %q"

// BalancerChoices lists the accepted balancer names in canonical order.
func BalancerChoices() []string {
	return []string{string(BalancerNone), string(BalancerRandomUnderSampling), string(BalancerRandomOverSampling)}
}

// ParseBalancers validates a space separated balancer list. An empty list yields [none].
func ParseBalancers(rawValue string) ([]Balancer, error) {
	parsedChoices, parseError := flags.ParseChoiceList(rawValue, BalancerChoices())
	if parseError != nil {
		return nil, parseError
	}
	if len(parsedChoices) == 0 {
		return []Balancer{BalancerNone}, nil
	}
	balancers := make([]Balancer, 0, len(parsedChoices))
	for _, parsedChoice := range parsedChoices {
		balancers = append(balancers, Balancer(parsedChoice))
	}
	return balancers, nil
}

// Balance resamples rows so both classes have the same size. The input slices are not modified.
func Balance(balancer Balancer, rows [][]float64, labels []bool, randomSource *rand.Rand) ([][]float64, []bool, error) {
	switch balancer {
	case BalancerNone, "":
		return rows, labels, nil
	case BalancerRandomUnderSampling:
		selectedRows, selectedLabels := gather(rows, labels, underSampleIndices(labels, randomSource))
		return selectedRows, selectedLabels, nil
	case BalancerRandomOverSampling:
		selectedRows, selectedLabels := gather(rows, labels, overSampleIndices(labels, randomSource))
		return selectedRows, selectedLabels, nil
	default:
		return nil, nil, fmt.Errorf(unsupportedBalancerTemplateConstant, balancer)
	}
}

func partitionByClass(labels []bool) ([]int, []int) {
	var positives []int
	var negatives []int
	for index, label := range labels {
		if label {
			positives = append(positives, index)
		} else {
			negatives = append(negatives, index)
		}
	}
	if len(positives) <= len(negatives) {
		return positives, negatives
	}
	return negatives, positives
}

// underSampleIndices keeps every minority row and a random majority sample of the same size, in
// original row order.
func underSampleIndices(labels []bool, randomSource *rand.Rand) []int {
	minority, majority := partitionByClass(labels)
	permutation := randomSource.Perm(len(majority))

	selected := append([]int(nil), minority...)
	for _, permutationIndex := range permutation[:len(minority)] {
		selected = append(selected, majority[permutationIndex])
	}
	sort.Ints(selected)
	return selected
}

// overSampleIndices keeps every row and appends minority rows drawn with replacement until the
// classes are even.
func overSampleIndices(labels []bool, randomSource *rand.Rand) []int {
	minority, majority := partitionByClass(labels)
	selected := make([]int, 0, 2*len(majority))
	for index := range labels {
		selected = append(selected, index)
	}
	if len(minority) == 0 {
		return selected
	}
	for drawn := len(minority); drawn < len(majority); drawn++ {
		selected = append(selected, minority[randomSource.IntN(len(minority))])
	}
	return selected
}

func gather(rows [][]float64, labels []bool, indices []int) ([][]float64, []bool) {
	gatheredRows := make([][]float64, len(indices))
	gatheredLabels := make([]bool, len(indices))
	for position, index := range indices {
		gatheredRows[position] = rows[index]
		gatheredLabels[position] = labels[index]
	}
	return gatheredRows, gatheredLabels
}
