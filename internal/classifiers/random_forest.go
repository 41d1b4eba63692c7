package classifiers

import (
	"math"
	"math/rand/v2"
)

// RandomForest averages bootstrap-trained decision trees that consider √features candidates per split.
type RandomForest struct {
	TreeCount int            `json:"tree_count" cbor:"tree_count"`
	MaxDepth  int            `json:"max_depth" cbor:"max_depth"`
	Seed      uint64         `json:"seed" cbor:"seed"`
	Trees     []DecisionTree `json:"trees" cbor:"trees"`
}

// Kind identifies the classifier.
func (forest *RandomForest) Kind() Kind {
	return KindRandomForest
}

// Fit trains TreeCount trees on bootstrap samples.
func (forest *RandomForest) Fit(rows [][]float64, labels []bool) error {
	if validationError := validateTrainingSet(rows, labels); validationError != nil {
		return validationError
	}
	if forest.TreeCount <= 0 {
		forest.TreeCount = DefaultTreeCount
	}

	maxFeatures := int(math.Sqrt(float64(len(rows[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	randomSource := rand.New(rand.NewPCG(forest.Seed, forest.Seed+1))
	forest.Trees = make([]DecisionTree, forest.TreeCount)
	sampleRows := make([][]float64, len(rows))
	sampleLabels := make([]bool, len(rows))
	for treeIndex := range forest.Trees {
		for sampleIndex := range sampleRows {
			drawn := randomSource.IntN(len(rows))
			sampleRows[sampleIndex] = rows[drawn]
			sampleLabels[sampleIndex] = labels[drawn]
		}

		forest.Trees[treeIndex] = DecisionTree{
			MaxDepth:    forest.MaxDepth,
			MaxFeatures: maxFeatures,
			Seed:        randomSource.Uint64(),
		}
		if fitError := forest.Trees[treeIndex].Fit(sampleRows, sampleLabels); fitError != nil {
			return fitError
		}
	}
	return nil
}

// Probability is the mean leaf probability across trees.
func (forest *RandomForest) Probability(row []float64) float64 {
	if len(forest.Trees) == 0 {
		return 0
	}
	total := 0.0
	for treeIndex := range forest.Trees {
		total += forest.Trees[treeIndex].Probability(row)
	}
	return total / float64(len(forest.Trees))
}
