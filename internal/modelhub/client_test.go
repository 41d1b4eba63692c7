package modelhub_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
	"github.com/radon-h2020/radon-defect-predictor/internal/modelhub"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
	"github.com/radon-h2020/radon-defect-predictor/internal/scoring"
)

func encodedTestModel(testInstance *testing.T) string {
	testInstance.Helper()
	rows := [][]float64{{1, 10}, {2, 12}, {3, 9}, {7, 30}, {8, 28}, {9, 35}}
	labels := []bool{false, false, false, true, true, true}

	classifier, creationError := classifiers.New(classifiers.KindNaiveBayes, classifiers.Options{})
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, classifier.Fit(rows, labels))

	encoded, encodeError := artifact.Encode(&artifact.Model{
		Balancer:   preprocess.BalancerNone,
		Normalizer: preprocess.Normalizer{Kind: preprocess.NormalizerNone},
		Classifier: classifier,
	}, artifact.FormatJSON)
	require.NoError(testInstance, encodeError)
	return string(encoded)
}

func newModelServiceServer(testInstance *testing.T, model string, received *modelhub.Payload) *httptest.Server {
	testInstance.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.Header.Get("Content-Type") != "application/json" {
			responseWriter.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if received != nil {
			if decodeError := json.NewDecoder(request.Body).Decode(received); decodeError != nil {
				responseWriter.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		responseWriter.Header().Set("Content-Type", "application/json")
		encodedResponse, _ := json.Marshal(modelhub.PreTrainedModel{Model: model, Attributes: []string{"lines_code", "num_tasks"}})
		_, _ = responseWriter.Write(encodedResponse)
	}))
	testInstance.Cleanup(server.Close)
	return server
}

func noRetryClient(serviceURL string) *modelhub.Client {
	return modelhub.NewClient(zap.NewNop(), modelhub.Options{ServiceURL: serviceURL, HTTP: httpclient.Options{RetryMax: 0, Timeout: time.Second}})
}

func TestNewPayloadMapsScores(testInstance *testing.T) {
	payload := modelhub.NewPayload(scoring.Scores{
		Language:         "ansible",
		CommitFrequency:  4.5,
		CoreContributors: 3,
		IssueFrequency:   1.25,
		PercentComments:  0.1,
		IaCRatio:         0.6,
		RepositorySize:   1200,
	})

	encoded, encodeError := json.Marshal(payload)
	require.NoError(testInstance, encodeError)
	require.JSONEq(testInstance, `{"commitFrequency":4.5,"coreContributors":3,"issueFrequency":1.25,"percentComments":0.1,"percentIac":0.6,"sloc":1200,"language":"ansible"}`, string(encoded))
}

func TestClientDownloadPreTrained(testInstance *testing.T) {
	model := encodedTestModel(testInstance)
	var received modelhub.Payload
	server := newModelServiceServer(testInstance, model, &received)

	payload := modelhub.Payload{CommitFrequency: 2, CoreContributors: 1, SLOC: 50, Language: "tosca"}
	downloaded, downloadError := noRetryClient(server.URL).DownloadPreTrained(context.Background(), payload)
	require.NoError(testInstance, downloadError)
	require.Equal(testInstance, payload, received)
	require.Equal(testInstance, model, downloaded.Model)
	require.Equal(testInstance, []string{"lines_code", "num_tasks"}, downloaded.Attributes)
}

func TestClientDownloadPreTrainedFailures(testInstance *testing.T) {
	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		validate func(*testing.T, error)
	}{
		{
			name: "status",
			handler: func(responseWriter http.ResponseWriter, request *http.Request) {
				responseWriter.WriteHeader(http.StatusInternalServerError)
			},
			validate: func(testInstance *testing.T, downloadError error) {
				var statusError modelhub.StatusError
				require.True(testInstance, errors.As(downloadError, &statusError))
				require.Equal(testInstance, http.StatusInternalServerError, statusError.StatusCode)
				require.EqualError(testInstance, downloadError, "response returned status: 500")
			},
		},
		{
			name: "malformed_body",
			handler: func(responseWriter http.ResponseWriter, request *http.Request) {
				fmt.Fprint(responseWriter, "<html>")
			},
			validate: func(testInstance *testing.T, downloadError error) {
				var decodingError modelhub.ResponseDecodingError
				require.True(testInstance, errors.As(downloadError, &decodingError))
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			server := httptest.NewServer(testCase.handler)
			defer server.Close()

			_, downloadError := noRetryClient(server.URL).DownloadPreTrained(context.Background(), modelhub.Payload{})
			require.Error(testInstance, downloadError)
			testCase.validate(testInstance, downloadError)
		})
	}
}

func TestStorePreTrained(testInstance *testing.T) {
	createdAt := time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC)
	directory := testInstance.TempDir()

	manifest, storeError := modelhub.StorePreTrained(directory, modelhub.PreTrainedModel{
		Model:      encodedTestModel(testInstance),
		Attributes: []string{"lines_code", "num_tasks"},
	}, createdAt)
	require.NoError(testInstance, storeError)
	require.Equal(testInstance, artifact.ModelJSONFileName, manifest.File)
	require.Equal(testInstance, 2, manifest.FeatureCount)

	restored, loadError := artifact.Load(directory)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{"lines_code", "num_tasks"}, restored.FeatureNames)
	require.Equal(testInstance, classifiers.KindNaiveBayes, restored.Classifier.Kind())

	_, emptyError := modelhub.StorePreTrained(testInstance.TempDir(), modelhub.PreTrainedModel{}, createdAt)
	require.ErrorIs(testInstance, emptyError, modelhub.ErrEmptyModel)

	garbageDirectory := testInstance.TempDir()
	_, garbageError := modelhub.StorePreTrained(garbageDirectory, modelhub.PreTrainedModel{Model: "pickled bytes"}, createdAt)
	var decodingError modelhub.ResponseDecodingError
	require.ErrorAs(testInstance, garbageError, &decodingError)
	_, statError := os.Stat(filepath.Join(garbageDirectory, artifact.ModelJSONFileName))
	require.True(testInstance, os.IsNotExist(statError))
}

func TestStorePreTrainedRejectsUnusableModels(testInstance *testing.T) {
	createdAt := time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		model      string
		attributes []string
	}{
		{
			name:       "SelfReferencingTree",
			model:      `{"balancer":"none","normalizer":{"kind":"none"},"classifier":"dt","estimator":{"nodes":[{"feature":0,"threshold":1,"left":0,"right":0}]}}`,
			attributes: []string{"lines_code"},
		},
		{
			name:       "AttributeCountMismatch",
			model:      encodedTestModel(testInstance),
			attributes: []string{"lines_code", "num_tasks", "num_roles"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			directory := testInstance.TempDir()
			_, storeError := modelhub.StorePreTrained(directory, modelhub.PreTrainedModel{Model: testCase.model, Attributes: testCase.attributes}, createdAt)
			var decodingError modelhub.ResponseDecodingError
			require.ErrorAs(testInstance, storeError, &decodingError)
			_, statError := os.Stat(filepath.Join(directory, artifact.ModelJSONFileName))
			require.True(testInstance, os.IsNotExist(statError))
		})
	}
}
