package hosting_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/hosting"
	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
)

func requireLiveToken(testInstance *testing.T, variableName string) string {
	testInstance.Helper()
	if testing.Short() {
		testInstance.Skip("live hosting checks disabled in short mode")
	}
	token, found := os.LookupEnv(variableName)
	if !found || len(token) == 0 {
		testInstance.Skipf("%s not set", variableName)
	}
	return token
}

func TestGitHubTrackerLive(testInstance *testing.T) {
	token := requireLiveToken(testInstance, hosting.EnvironmentGitHubAccessToken)
	tracker, trackerError := hosting.NewIssueTracker(zap.NewNop(), hosting.HostGitHub, hosting.TrackerOptions{Token: token, HTTP: httpclient.Options{RetryMax: 1}})
	require.NoError(testInstance, trackerError)

	reference := hosting.RepositoryReference{FullName: "radon-h2020/radon-defect-predictor"}
	createdAt, lookupError := tracker.ProjectCreatedAt(context.Background(), reference)
	require.NoError(testInstance, lookupError)
	require.True(testInstance, createdAt.Before(time.Now()))

	_, countError := tracker.CountIssues(context.Background(), reference)
	require.NoError(testInstance, countError)
}

func TestGitLabTrackerLive(testInstance *testing.T) {
	token := requireLiveToken(testInstance, hosting.EnvironmentGitLabAccessToken)
	tracker, trackerError := hosting.NewIssueTracker(zap.NewNop(), hosting.HostGitLab, hosting.TrackerOptions{Token: token, HTTP: httpclient.Options{RetryMax: 1}})
	require.NoError(testInstance, trackerError)

	reference := hosting.RepositoryReference{FullName: "gitlab-org/gitlab-runner"}
	createdAt, lookupError := tracker.ProjectCreatedAt(context.Background(), reference)
	require.NoError(testInstance, lookupError)
	require.True(testInstance, createdAt.Before(time.Now()))
}
