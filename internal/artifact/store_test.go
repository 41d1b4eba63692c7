package artifact_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
)

func fittedModel(testInstance *testing.T, kind classifiers.Kind) *artifact.Model {
	rows := [][]float64{{1, 10}, {2, 12}, {3, 9}, {7, 30}, {8, 28}, {9, 35}}
	labels := []bool{false, false, false, true, true, true}

	normalizer, normalizerError := preprocess.FitNormalizer(preprocess.NormalizerMinMax, rows)
	require.NoError(testInstance, normalizerError)
	normalizedRows, transformError := normalizer.TransformAll(rows)
	require.NoError(testInstance, transformError)

	classifier, creationError := classifiers.New(kind, classifiers.Options{Seed: 5, TreeCount: 5})
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, classifier.Fit(normalizedRows, labels))

	return &artifact.Model{
		Balancer:     preprocess.BalancerNone,
		Normalizer:   normalizer,
		Classifier:   classifier,
		FeatureNames: []string{"lines_code", "num_tasks"},
	}
}

func TestStoreAndLoadRoundTrip(testInstance *testing.T) {
	createdAt := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	sampleRows := [][]float64{{1.5, 11}, {8.5, 33}, {5, 20}}

	for _, format := range []artifact.Format{artifact.FormatJSON, artifact.FormatCBOR} {
		for _, kind := range classifiers.KindChoices() {
			testInstance.Run(string(format)+"_"+kind, func(testInstance *testing.T) {
				directory := testInstance.TempDir()
				original := fittedModel(testInstance, classifiers.Kind(kind))

				manifest, storeError := artifact.Store(directory, original, format, createdAt)
				require.NoError(testInstance, storeError)
				require.Equal(testInstance, artifact.ModelFileName(format), manifest.File)
				require.Equal(testInstance, 2, manifest.FeatureCount)
				require.FileExists(testInstance, filepath.Join(directory, artifact.FeaturesFileName))

				restored, loadError := artifact.Load(directory)
				require.NoError(testInstance, loadError)
				require.Equal(testInstance, original.FeatureNames, restored.FeatureNames)
				require.Equal(testInstance, classifiers.Kind(kind), restored.Classifier.Kind())
				for _, sampleRow := range sampleRows {
					expected, expectedError := original.Probability(sampleRow)
					require.NoError(testInstance, expectedError)
					actual, actualError := restored.Probability(sampleRow)
					require.NoError(testInstance, actualError)
					require.InDelta(testInstance, expected, actual, 1e-12)
				}
			})
		}
	}
}

func TestLoadDetectsTamperedModel(testInstance *testing.T) {
	directory := testInstance.TempDir()
	_, storeError := artifact.Store(directory, fittedModel(testInstance, classifiers.KindDecisionTree), artifact.FormatJSON, time.Now())
	require.NoError(testInstance, storeError)

	modelPath := filepath.Join(directory, artifact.ModelJSONFileName)
	content, readError := os.ReadFile(modelPath)
	require.NoError(testInstance, readError)
	require.NoError(testInstance, os.WriteFile(modelPath, append(content, ' '), 0o644))

	_, loadError := artifact.Load(directory)
	var mismatchError artifact.DigestMismatchError
	require.ErrorAs(testInstance, loadError, &mismatchError)
	require.Equal(testInstance, modelPath, mismatchError.File)
}

func TestLoadWithoutManifestReadsJSONModel(testInstance *testing.T) {
	directory := testInstance.TempDir()
	model := fittedModel(testInstance, classifiers.KindNaiveBayes)
	encoded, encodeError := artifact.Encode(model, artifact.FormatJSON)
	require.NoError(testInstance, encodeError)
	require.NoError(testInstance, os.WriteFile(filepath.Join(directory, artifact.ModelJSONFileName), encoded, 0o644))
	require.NoError(testInstance, artifact.WriteJSON(filepath.Join(directory, artifact.FeaturesFileName), model.FeatureNames))

	restored, loadError := artifact.Load(directory)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, model.FeatureNames, restored.FeatureNames)

	_, missingError := artifact.Load(testInstance.TempDir())
	require.Error(testInstance, missingError)
}

func TestModelRejectsWrongFeatureCount(testInstance *testing.T) {
	model := fittedModel(testInstance, classifiers.KindLogisticRegression)
	_, _, predictError := model.Predict([]float64{1})
	require.Error(testInstance, predictError)

	_, _, emptyError := (&artifact.Model{}).Predict([]float64{1})
	require.ErrorIs(testInstance, emptyError, artifact.ErrMissingClassifier)
}

func TestParseFormat(testInstance *testing.T) {
	defaultFormat, defaultError := artifact.ParseFormat("")
	require.NoError(testInstance, defaultError)
	require.Equal(testInstance, artifact.FormatJSON, defaultFormat)

	cborFormat, cborError := artifact.ParseFormat("CBOR")
	require.NoError(testInstance, cborError)
	require.Equal(testInstance, artifact.FormatCBOR, cborFormat)

	_, invalidError := artifact.ParseFormat("pickle")
	require.EqualError(testInstance, invalidError, "pickle is not a valid argument")
}

func TestDecodeRejectsMalformedEstimators(testInstance *testing.T) {
	testCases := []struct {
		name    string
		encoded string
	}{
		{
			name:    "SelfReferencingTree",
			encoded: `{"classifier":"dt","estimator":{"nodes":[{"feature":0,"threshold":1,"left":0,"right":0}]}}`,
		},
		{
			name:    "TreeChildOutOfRange",
			encoded: `{"classifier":"dt","estimator":{"nodes":[{"feature":0,"threshold":1,"left":7,"right":7}]}}`,
		},
		{
			name:    "TreeWithoutNodes",
			encoded: `{"classifier":"dt","estimator":{"nodes":[]}}`,
		},
		{
			name:    "ForestWithCyclicTree",
			encoded: `{"classifier":"rf","estimator":{"trees":[{"nodes":[{"feature":0,"threshold":1,"left":1,"right":0},{"feature":-1,"probability":1}]}]}}`,
		},
		{
			name:    "LogisticWithoutWeights",
			encoded: `{"classifier":"logit","estimator":{"weights":[],"bias":0.5}}`,
		},
		{
			name:    "NaiveBayesUnevenParameters",
			encoded: `{"classifier":"nb","estimator":{"class_priors":[0.5,0.5],"class_means":[[1,2],[3]],"class_variances":[[1,1],[1]]}}`,
		},
		{
			name:    "NormalizerScalesWithoutOffsets",
			encoded: `{"normalizer":{"kind":"std","scales":[1,1]},"classifier":"svm","estimator":{"weights":[1,1],"bias":0}}`,
		},
		{
			name:    "UnknownNormalizer",
			encoded: `{"normalizer":{"kind":"robust"},"classifier":"svm","estimator":{"weights":[1,1],"bias":0}}`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			model, decodeError := artifact.Decode([]byte(testCase.encoded), artifact.FormatJSON)
			require.Error(testInstance, decodeError)
			require.Nil(testInstance, model)
		})
	}
}

func TestLoadRejectsModelWiderThanFeatures(testInstance *testing.T) {
	directory := testInstance.TempDir()
	model := fittedModel(testInstance, classifiers.KindSupportVector)
	model.Normalizer = preprocess.Normalizer{Kind: preprocess.NormalizerNone}
	encoded, encodeError := artifact.Encode(model, artifact.FormatJSON)
	require.NoError(testInstance, encodeError)
	require.NoError(testInstance, os.WriteFile(filepath.Join(directory, artifact.ModelJSONFileName), encoded, 0o644))
	require.NoError(testInstance, artifact.WriteJSON(filepath.Join(directory, artifact.FeaturesFileName), []string{"lines_code"}))

	_, loadError := artifact.Load(directory)
	var invalidModelError classifiers.InvalidModelError
	require.ErrorAs(testInstance, loadError, &invalidModelError)
	require.Equal(testInstance, classifiers.KindSupportVector, invalidModelError.Kind)
}

func TestLoadRejectsManifestFileOutsideDirectory(testInstance *testing.T) {
	testCases := []struct {
		name     string
		fileName string
	}{
		{name: "ParentTraversal", fileName: "../model.json"},
		{name: "AbsolutePath", fileName: "/etc/passwd"},
		{name: "NestedPath", fileName: "nested/model.json"},
		{name: "DotDot", fileName: ".."},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			directory := testInstance.TempDir()
			manifest, storeError := artifact.Store(directory, fittedModel(testInstance, classifiers.KindNaiveBayes), artifact.FormatJSON, time.Now())
			require.NoError(testInstance, storeError)

			manifest.File = testCase.fileName
			require.NoError(testInstance, artifact.WriteJSON(filepath.Join(directory, artifact.ManifestFileName), manifest))

			_, loadError := artifact.Load(directory)
			require.ErrorContains(testInstance, loadError, "outside the model directory")
		})
	}
}
