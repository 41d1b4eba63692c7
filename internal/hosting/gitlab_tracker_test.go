package hosting_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radon-h2020/radon-defect-predictor/internal/hosting"
	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
)

const gitlabTestTokenConstant = "gitlab-test-token"

func newGitLabTestServer(testInstance *testing.T) *httptest.Server {
	testInstance.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.Header.Get("PRIVATE-TOKEN") != gitlabTestTokenConstant {
			responseWriter.WriteHeader(http.StatusUnauthorized)
			return
		}
		responseWriter.Header().Set("Content-Type", "application/json")
		switch request.URL.EscapedPath() {
		case "/api/v4/projects/radon%2Finfra%2Fplaybooks", "/api/v4/projects/7":
			fmt.Fprint(responseWriter, `{"id":7,"created_at":"2020-06-15T08:30:00.000Z"}`)
		case "/api/v4/projects/radon%2Finfra%2Fplaybooks/issues":
			if request.URL.Query().Get("scope") != "all" {
				responseWriter.WriteHeader(http.StatusBadRequest)
				return
			}
			switch request.URL.Query().Get("page") {
			case "1":
				responseWriter.Header().Set("X-Next-Page", "2")
				fmt.Fprint(responseWriter, `[{"iid":1},{"iid":2},{"iid":3}]`)
			case "2":
				responseWriter.Header().Set("X-Next-Page", "")
				fmt.Fprint(responseWriter, `[{"iid":4}]`)
			default:
				responseWriter.WriteHeader(http.StatusBadRequest)
			}
		default:
			responseWriter.WriteHeader(http.StatusNotFound)
			fmt.Fprint(responseWriter, `{"message":"404 Project Not Found"}`)
		}
	}))
	testInstance.Cleanup(server.Close)
	return server
}

func newGitLabTestTracker(testInstance *testing.T, server *httptest.Server, logger *zap.Logger) *hosting.GitLabTracker {
	testInstance.Helper()
	tracker, trackerError := hosting.NewGitLabTracker(logger, hosting.GitLabOptions{
		Token:   gitlabTestTokenConstant,
		BaseURL: server.URL + "/api/v4/",
		Client:  httpclient.NewRetryableClient(logger, httpclient.Options{RetryMax: 0, Timeout: time.Second}),
	})
	require.NoError(testInstance, trackerError)
	return tracker
}

func TestGitLabTrackerProjectCreatedAt(testInstance *testing.T) {
	server := newGitLabTestServer(testInstance)
	tracker := newGitLabTestTracker(testInstance, server, zap.NewNop())
	expectedCreation := time.Date(2020, time.June, 15, 8, 30, 0, 0, time.UTC)

	for _, reference := range []hosting.RepositoryReference{{FullName: "radon/infra/playbooks"}, {ID: 7}} {
		createdAt, lookupError := tracker.ProjectCreatedAt(context.Background(), reference)
		require.NoError(testInstance, lookupError)
		require.True(testInstance, expectedCreation.Equal(createdAt))
	}
}

func TestGitLabTrackerCountIssuesFollowsPagination(testInstance *testing.T) {
	server := newGitLabTestServer(testInstance)
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	tracker := newGitLabTestTracker(testInstance, server, zap.New(observedCore))

	issueCount, countError := tracker.CountIssues(context.Background(), hosting.RepositoryReference{FullName: "radon/infra/playbooks"})
	require.NoError(testInstance, countError)
	require.Equal(testInstance, 4, issueCount)
	require.Equal(testInstance, 2, observedLogs.FilterMessage("Fetched issue page").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Counted repository issues").Len())
}

func TestGitLabTrackerReportsStatus(testInstance *testing.T) {
	server := newGitLabTestServer(testInstance)
	tracker := newGitLabTestTracker(testInstance, server, zap.NewNop())

	_, countError := tracker.CountIssues(context.Background(), hosting.RepositoryReference{FullName: "radon/unknown"})
	require.Error(testInstance, countError)

	var apiError hosting.APIError
	require.True(testInstance, errors.As(countError, &apiError))
	require.Equal(testInstance, http.StatusNotFound, apiError.StatusCode)
	require.Equal(testInstance, "issues", apiError.Operation)
}
