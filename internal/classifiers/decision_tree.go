package classifiers

import (
	"math/rand/v2"
	"sort"
)

const (
	defaultMinSamplesSplitConstant = 2
	defaultMinSamplesLeafConstant  = 1
	leafFeatureIndexConstant       = -1
)

// TreeNode is one node of a flattened tree. Leaves carry Feature == -1.
type TreeNode struct {
	Feature     int     `json:"feature" cbor:"feature"`
	Threshold   float64 `json:"threshold" cbor:"threshold"`
	Left        int     `json:"left" cbor:"left"`
	Right       int     `json:"right" cbor:"right"`
	Probability float64 `json:"probability" cbor:"probability"`
}

// DecisionTree is a CART classifier using Gini impurity. MaxDepth 0 means unlimited; MaxFeatures 0
// considers every feature at every split.
type DecisionTree struct {
	MaxDepth        int        `json:"max_depth" cbor:"max_depth"`
	MinSamplesSplit int        `json:"min_samples_split" cbor:"min_samples_split"`
	MinSamplesLeaf  int        `json:"min_samples_leaf" cbor:"min_samples_leaf"`
	MaxFeatures     int        `json:"max_features,omitempty" cbor:"max_features,omitempty"`
	Seed            uint64     `json:"seed" cbor:"seed"`
	Nodes           []TreeNode `json:"nodes" cbor:"nodes"`
}

// Kind identifies the classifier.
func (tree *DecisionTree) Kind() Kind {
	return KindDecisionTree
}

// Fit grows the tree on the training rows.
func (tree *DecisionTree) Fit(rows [][]float64, labels []bool) error {
	if validationError := validateTrainingSet(rows, labels); validationError != nil {
		return validationError
	}
	if tree.MinSamplesSplit < defaultMinSamplesSplitConstant {
		tree.MinSamplesSplit = defaultMinSamplesSplitConstant
	}
	if tree.MinSamplesLeaf < defaultMinSamplesLeafConstant {
		tree.MinSamplesLeaf = defaultMinSamplesLeafConstant
	}

	indices := make([]int, len(rows))
	for index := range indices {
		indices[index] = index
	}

	grower := treeGrower{
		tree:         tree,
		rows:         rows,
		labels:       labels,
		featureCount: len(rows[0]),
		randomSource: rand.New(rand.NewPCG(tree.Seed, tree.Seed^0x9e3779b97f4a7c15)),
	}
	tree.Nodes = tree.Nodes[:0]
	grower.grow(indices, 0)
	return nil
}

// Probability walks the tree to a leaf.
func (tree *DecisionTree) Probability(row []float64) float64 {
	if len(tree.Nodes) == 0 {
		return 0
	}
	nodeIndex := 0
	for {
		node := tree.Nodes[nodeIndex]
		if node.Feature == leafFeatureIndexConstant || node.Feature >= len(row) {
			return node.Probability
		}
		if row[node.Feature] <= node.Threshold {
			nodeIndex = node.Left
		} else {
			nodeIndex = node.Right
		}
	}
}

type treeGrower struct {
	tree         *DecisionTree
	rows         [][]float64
	labels       []bool
	featureCount int
	randomSource *rand.Rand
}

type candidateSplit struct {
	feature   int
	threshold float64
	impurity  float64
	found     bool
}

// grow appends the subtree for indices and returns its root position.
func (grower *treeGrower) grow(indices []int, depth int) int {
	positives := countPositives(grower.labels, indices)
	nodeIndex := len(grower.tree.Nodes)
	grower.tree.Nodes = append(grower.tree.Nodes, TreeNode{
		Feature:     leafFeatureIndexConstant,
		Probability: float64(positives) / float64(len(indices)),
	})

	if positives == 0 || positives == len(indices) {
		return nodeIndex
	}
	if len(indices) < grower.tree.MinSamplesSplit {
		return nodeIndex
	}
	if grower.tree.MaxDepth > 0 && depth >= grower.tree.MaxDepth {
		return nodeIndex
	}

	split := grower.bestSplit(indices)
	if !split.found {
		return nodeIndex
	}

	var leftIndices []int
	var rightIndices []int
	for _, index := range indices {
		if grower.rows[index][split.feature] <= split.threshold {
			leftIndices = append(leftIndices, index)
		} else {
			rightIndices = append(rightIndices, index)
		}
	}

	leftChild := grower.grow(leftIndices, depth+1)
	rightChild := grower.grow(rightIndices, depth+1)
	grower.tree.Nodes[nodeIndex].Feature = split.feature
	grower.tree.Nodes[nodeIndex].Threshold = split.threshold
	grower.tree.Nodes[nodeIndex].Left = leftChild
	grower.tree.Nodes[nodeIndex].Right = rightChild
	return nodeIndex
}

func (grower *treeGrower) candidateFeatures() []int {
	if grower.tree.MaxFeatures <= 0 || grower.tree.MaxFeatures >= grower.featureCount {
		features := make([]int, grower.featureCount)
		for index := range features {
			features[index] = index
		}
		return features
	}
	features := grower.randomSource.Perm(grower.featureCount)[:grower.tree.MaxFeatures]
	sort.Ints(features)
	return features
}

func (grower *treeGrower) bestSplit(indices []int) candidateSplit {
	best := candidateSplit{}
	sorted := make([]int, len(indices))
	totalPositives := countPositives(grower.labels, indices)
	total := len(indices)
	minimumLeaf := grower.tree.MinSamplesLeaf

	for _, feature := range grower.candidateFeatures() {
		copy(sorted, indices)
		sort.SliceStable(sorted, func(left int, right int) bool {
			return grower.rows[sorted[left]][feature] < grower.rows[sorted[right]][feature]
		})

		leftPositives := 0
		for position := 0; position < total-1; position++ {
			if grower.labels[sorted[position]] {
				leftPositives++
			}
			currentValue := grower.rows[sorted[position]][feature]
			nextValue := grower.rows[sorted[position+1]][feature]
			if currentValue == nextValue {
				continue
			}
			leftCount := position + 1
			rightCount := total - leftCount
			if leftCount < minimumLeaf || rightCount < minimumLeaf {
				continue
			}

			impurity := (float64(leftCount)*gini(leftPositives, leftCount) +
				float64(rightCount)*gini(totalPositives-leftPositives, rightCount)) / float64(total)
			if !best.found || impurity < best.impurity {
				threshold := currentValue + (nextValue-currentValue)/2
				if threshold >= nextValue {
					threshold = currentValue
				}
				best = candidateSplit{
					feature:   feature,
					threshold: threshold,
					impurity:  impurity,
					found:     true,
				}
			}
		}
	}
	return best
}

func gini(positives int, count int) float64 {
	if count == 0 {
		return 0
	}
	positiveShare := float64(positives) / float64(count)
	return 2 * positiveShare * (1 - positiveShare)
}

func countPositives(labels []bool, indices []int) int {
	positives := 0
	for _, index := range indices {
		if labels[index] {
			positives++
		}
	}
	return positives
}
