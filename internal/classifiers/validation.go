package classifiers

import (
	"fmt"
	"math"
)

const (
	invalidModelTemplateConstant        = "invalid %s model: %s"
	emptyTreeMessageConstant            = "tree has no nodes"
	emptyForestMessageConstant          = "forest has no trees"
	emptyWeightsMessageConstant         = "weights are empty"
	weightCountTemplateConstant         = "%d weights for %d features"
	nonFiniteParameterMessageConstant   = "parameters must be finite"
	nodeFeatureTemplateConstant         = "node %d splits on feature %d of %d"
	nodeChildTemplateConstant           = "node %d points to child %d outside (%d, %d)"
	nodeProbabilityTemplateConstant     = "node %d probability %v is outside [0, 1]"
	forestTreeTemplateConstant          = "tree %d: %w"
	classPriorTemplateConstant          = "class prior %v is outside [0, 1]"
	classParameterCountTemplateConstant = "class %d has %d means and %d variances for %d features"
)

// InvalidModelError reports a fitted classifier whose stored state cannot be evaluated safely.
type InvalidModelError struct {
	Kind   Kind
	Reason string
	Cause  error
}

// Error describes the rejected model.
func (modelError InvalidModelError) Error() string {
	reason := modelError.Reason
	if modelError.Cause != nil {
		reason = modelError.Cause.Error()
	}
	return fmt.Sprintf(invalidModelTemplateConstant, modelError.Kind, reason)
}

// Unwrap exposes the nested cause.
func (modelError InvalidModelError) Unwrap() error {
	return modelError.Cause
}

// Validate checks the node graph: split features lie in [0, featureCount), children sit after
// their parent and inside the node list, and probabilities lie in [0, 1]. A featureCount of zero
// skips the feature bound.
func (tree *DecisionTree) Validate(featureCount int) error {
	if len(tree.Nodes) == 0 {
		return InvalidModelError{Kind: KindDecisionTree, Reason: emptyTreeMessageConstant}
	}
	nodeCount := len(tree.Nodes)
	for nodeIndex, node := range tree.Nodes {
		if math.IsNaN(node.Probability) || node.Probability < 0 || node.Probability > 1 {
			return InvalidModelError{Kind: KindDecisionTree, Reason: fmt.Sprintf(nodeProbabilityTemplateConstant, nodeIndex, node.Probability)}
		}
		if node.Feature == leafFeatureIndexConstant {
			continue
		}
		if node.Feature < 0 || (featureCount > 0 && node.Feature >= featureCount) {
			return InvalidModelError{Kind: KindDecisionTree, Reason: fmt.Sprintf(nodeFeatureTemplateConstant, nodeIndex, node.Feature, featureCount)}
		}
		if math.IsNaN(node.Threshold) {
			return InvalidModelError{Kind: KindDecisionTree, Reason: nonFiniteParameterMessageConstant}
		}
		for _, child := range []int{node.Left, node.Right} {
			if child <= nodeIndex || child >= nodeCount {
				return InvalidModelError{Kind: KindDecisionTree, Reason: fmt.Sprintf(nodeChildTemplateConstant, nodeIndex, child, nodeIndex, nodeCount)}
			}
		}
	}
	return nil
}

// Validate checks every tree of the forest.
func (forest *RandomForest) Validate(featureCount int) error {
	if len(forest.Trees) == 0 {
		return InvalidModelError{Kind: KindRandomForest, Reason: emptyForestMessageConstant}
	}
	for treeIndex := range forest.Trees {
		if treeError := forest.Trees[treeIndex].Validate(featureCount); treeError != nil {
			return InvalidModelError{Kind: KindRandomForest, Cause: fmt.Errorf(forestTreeTemplateConstant, treeIndex, treeError)}
		}
	}
	return nil
}

// Validate requires one finite weight per feature.
func (model *LogisticRegression) Validate(featureCount int) error {
	return validateLinearWeights(KindLogisticRegression, model.Weights, model.Bias, featureCount)
}

// Validate requires one finite weight per feature.
func (model *SupportVectorMachine) Validate(featureCount int) error {
	return validateLinearWeights(KindSupportVector, model.Weights, model.Bias, featureCount)
}

// Validate requires priors in [0, 1] and one mean and variance per feature for each class.
func (model *NaiveBayes) Validate(featureCount int) error {
	expectedCount := featureCount
	if expectedCount <= 0 {
		expectedCount = len(model.ClassMeans[0])
	}
	for classIndex := 0; classIndex < 2; classIndex++ {
		prior := model.ClassPriors[classIndex]
		if math.IsNaN(prior) || prior < 0 || prior > 1 {
			return InvalidModelError{Kind: KindNaiveBayes, Reason: fmt.Sprintf(classPriorTemplateConstant, prior)}
		}
		meanCount := len(model.ClassMeans[classIndex])
		varianceCount := len(model.ClassVariances[classIndex])
		if meanCount != expectedCount || varianceCount != expectedCount {
			return InvalidModelError{Kind: KindNaiveBayes, Reason: fmt.Sprintf(classParameterCountTemplateConstant, classIndex, meanCount, varianceCount, expectedCount)}
		}
	}
	return nil
}

func validateLinearWeights(kind Kind, weights []float64, bias float64, featureCount int) error {
	if len(weights) == 0 {
		return InvalidModelError{Kind: kind, Reason: emptyWeightsMessageConstant}
	}
	if featureCount > 0 && len(weights) != featureCount {
		return InvalidModelError{Kind: kind, Reason: fmt.Sprintf(weightCountTemplateConstant, len(weights), featureCount)}
	}
	if !isFinite(bias) {
		return InvalidModelError{Kind: kind, Reason: nonFiniteParameterMessageConstant}
	}
	for _, weight := range weights {
		if !isFinite(weight) {
			return InvalidModelError{Kind: kind, Reason: nonFiniteParameterMessageConstant}
		}
	}
	return nil
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
