package classifiers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

func separableTrainingSet() ([][]float64, []bool) {
	var rows [][]float64
	var labels []bool
	for step := -10; step <= 10; step++ {
		if step == 0 {
			continue
		}
		rows = append(rows, []float64{float64(step) / 2, float64((step + 30) % 3)})
		labels = append(labels, step > 0)
	}
	return rows, labels
}

func TestParseKinds(testInstance *testing.T) {
	testCases := []struct {
		name          string
		rawValue      string
		expectedKinds []classifiers.Kind
		expectedError error
	}{
		{
			name:          "explicit_list",
			rawValue:      "rf dt",
			expectedKinds: []classifiers.Kind{classifiers.KindRandomForest, classifiers.KindDecisionTree},
		},
		{
			name:     "empty_defaults_to_all",
			rawValue: "",
			expectedKinds: []classifiers.Kind{
				classifiers.KindDecisionTree,
				classifiers.KindLogisticRegression,
				classifiers.KindNaiveBayes,
				classifiers.KindRandomForest,
				classifiers.KindSupportVector,
			},
		},
		{
			name:          "unknown_classifier",
			rawValue:      "dt knn",
			expectedError: flags.InvalidChoiceError{Choice: "knn"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			kinds, parseError := classifiers.ParseKinds(testCase.rawValue)
			if testCase.expectedError != nil {
				require.Equal(testInstance, testCase.expectedError, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedKinds, kinds)
		})
	}
}

func TestClassifiersLearnSeparableData(testInstance *testing.T) {
	rows, labels := separableTrainingSet()

	testCases := []struct {
		kind            classifiers.Kind
		minimumAccuracy float64
	}{
		{kind: classifiers.KindDecisionTree, minimumAccuracy: 1},
		{kind: classifiers.KindLogisticRegression, minimumAccuracy: 0.9},
		{kind: classifiers.KindNaiveBayes, minimumAccuracy: 1},
		{kind: classifiers.KindRandomForest, minimumAccuracy: 0.9},
		{kind: classifiers.KindSupportVector, minimumAccuracy: 0.85},
	}

	for _, testCase := range testCases {
		testInstance.Run(string(testCase.kind), func(testInstance *testing.T) {
			classifier, creationError := classifiers.New(testCase.kind, classifiers.Options{Seed: 11, TreeCount: 25})
			require.NoError(testInstance, creationError)
			require.Equal(testInstance, testCase.kind, classifier.Kind())
			require.NoError(testInstance, classifier.Fit(rows, labels))

			correct := 0
			for rowIndex, row := range rows {
				probability := classifier.Probability(row)
				require.GreaterOrEqual(testInstance, probability, 0.0)
				require.LessOrEqual(testInstance, probability, 1.0)
				if classifiers.Predict(classifier, row) == labels[rowIndex] {
					correct++
				}
			}
			require.GreaterOrEqual(testInstance, float64(correct)/float64(len(rows)), testCase.minimumAccuracy)
			require.True(testInstance, classifiers.Predict(classifier, []float64{4.5, 1}))
			require.False(testInstance, classifiers.Predict(classifier, []float64{-4.5, 1}))
		})
	}
}

func TestClassifiersRejectInvalidTrainingSets(testInstance *testing.T) {
	for _, kind := range classifiers.KindChoices() {
		classifier, creationError := classifiers.New(classifiers.Kind(kind), classifiers.Options{})
		require.NoError(testInstance, creationError)
		require.ErrorIs(testInstance, classifier.Fit(nil, nil), classifiers.ErrEmptyTrainingSet)
		require.Error(testInstance, classifier.Fit([][]float64{{1}}, []bool{true, false}))
	}

	_, unknownError := classifiers.New("knn", classifiers.Options{})
	require.Error(testInstance, unknownError)
}

func TestRandomForestIsDeterministicForSeed(testInstance *testing.T) {
	rows, labels := separableTrainingSet()

	first := &classifiers.RandomForest{TreeCount: 10, Seed: 3}
	second := &classifiers.RandomForest{TreeCount: 10, Seed: 3}
	require.NoError(testInstance, first.Fit(rows, labels))
	require.NoError(testInstance, second.Fit(rows, labels))
	require.Equal(testInstance, first.Trees, second.Trees)
}

func TestDecisionTreeHonoursMaxDepth(testInstance *testing.T) {
	rows := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	labels := []bool{false, true, true, false}

	stump := &classifiers.DecisionTree{MaxDepth: 1}
	require.NoError(testInstance, stump.Fit(rows, labels))
	require.Len(testInstance, stump.Nodes, 3)

	full := &classifiers.DecisionTree{}
	require.NoError(testInstance, full.Fit(rows, labels))
	for rowIndex, row := range rows {
		require.Equal(testInstance, labels[rowIndex], classifiers.Predict(full, row))
	}
}

func TestFittedClassifiersValidate(testInstance *testing.T) {
	rows, labels := separableTrainingSet()
	for _, kind := range classifiers.KindChoices() {
		testInstance.Run(kind, func(testInstance *testing.T) {
			classifier, creationError := classifiers.New(classifiers.Kind(kind), classifiers.Options{Seed: 3, TreeCount: 7})
			require.NoError(testInstance, creationError)
			require.NoError(testInstance, classifier.Fit(rows, labels))
			require.NoError(testInstance, classifier.Validate(len(rows[0])))
			require.NoError(testInstance, classifier.Validate(0))
		})
	}
}

func TestDecisionTreeValidateRejectsMalformedGraphs(testInstance *testing.T) {
	testCases := []struct {
		name  string
		nodes []classifiers.TreeNode
	}{
		{name: "Empty", nodes: nil},
		{name: "SelfReference", nodes: []classifiers.TreeNode{{Feature: 0, Threshold: 1}}},
		{name: "BackEdge", nodes: []classifiers.TreeNode{
			{Feature: 0, Threshold: 1, Left: 1, Right: 2},
			{Feature: 1, Threshold: 1, Left: 0, Right: 2},
			{Feature: -1, Probability: 1},
		}},
		{name: "ChildPastEnd", nodes: []classifiers.TreeNode{{Feature: 0, Threshold: 1, Left: 7, Right: 7}}},
		{name: "FeatureOutOfRange", nodes: []classifiers.TreeNode{
			{Feature: 2, Threshold: 1, Left: 1, Right: 2},
			{Feature: -1, Probability: 0},
			{Feature: -1, Probability: 1},
		}},
		{name: "NegativeFeature", nodes: []classifiers.TreeNode{
			{Feature: -3, Threshold: 1, Left: 1, Right: 2},
			{Feature: -1, Probability: 0},
			{Feature: -1, Probability: 1},
		}},
		{name: "ProbabilityAboveOne", nodes: []classifiers.TreeNode{{Feature: -1, Probability: 1.5}}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			tree := &classifiers.DecisionTree{Nodes: testCase.nodes}
			validationError := tree.Validate(2)
			var invalidModelError classifiers.InvalidModelError
			require.ErrorAs(testInstance, validationError, &invalidModelError)
			require.Equal(testInstance, classifiers.KindDecisionTree, invalidModelError.Kind)
		})
	}
}

func TestLinearAndBayesValidateFeatureCount(testInstance *testing.T) {
	testCases := []struct {
		name       string
		classifier classifiers.Classifier
	}{
		{name: "LogisticShortWeights", classifier: &classifiers.LogisticRegression{Weights: []float64{1}}},
		{name: "SupportVectorShortWeights", classifier: &classifiers.SupportVectorMachine{Weights: []float64{1}}},
		{name: "NaiveBayesShortMeans", classifier: &classifiers.NaiveBayes{
			ClassPriors:    [2]float64{0.5, 0.5},
			ClassMeans:     [2][]float64{{1}, {2}},
			ClassVariances: [2][]float64{{1}, {1}},
		}},
		{name: "ForestWithoutTrees", classifier: &classifiers.RandomForest{}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Error(testInstance, testCase.classifier.Validate(2))
		})
	}
}
