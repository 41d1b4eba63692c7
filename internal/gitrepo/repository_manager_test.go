package gitrepo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radon-h2020/radon-defect-predictor/internal/execshell"
	"github.com/radon-h2020/radon-defect-predictor/internal/gitrepo"
)

type scriptedGitExecutor struct {
	outputs         map[string]execshell.ExecutionResult
	failures        map[string]error
	recordedDetails []execshell.CommandDetails
}

func (executor *scriptedGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	subcommand := details.Arguments[0]
	if failure, failing := executor.failures[subcommand]; failing {
		return execshell.ExecutionResult{}, failure
	}
	return executor.outputs[subcommand], nil
}

func TestRepositoryManagerRequiresExecutor(testInstance *testing.T) {
	_, creationError := gitrepo.NewRepositoryManager(nil)
	require.ErrorIs(testInstance, creationError, gitrepo.ErrExecutorNotConfigured)
}

func TestRepositoryManagerCommits(testInstance *testing.T) {
	executor := &scriptedGitExecutor{outputs: map[string]execshell.ExecutionResult{
		"log": {StandardOutput: "a1\x1fDev@Example.com\x1fDev One\x1f1700000000\nb2\x1fops@example.com\x1fOps\x1f1690000000\n"},
	}}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	commits, commitsError := manager.Commits(context.Background(), "/repo")
	require.NoError(testInstance, commitsError)
	require.Equal(testInstance, []gitrepo.Commit{
		{Hash: "a1", AuthorEmail: "dev@example.com", AuthorName: "Dev One", AuthoredAt: time.Unix(1700000000, 0).UTC()},
		{Hash: "b2", AuthorEmail: "ops@example.com", AuthorName: "Ops", AuthoredAt: time.Unix(1690000000, 0).UTC()},
	}, commits)
	require.Equal(testInstance, "/repo", executor.recordedDetails[0].WorkingDirectory)
	require.Contains(testInstance, executor.recordedDetails[0].Arguments, "--no-merges")
}

func TestRepositoryManagerTrackedFilesAndRemote(testInstance *testing.T) {
	executor := &scriptedGitExecutor{outputs: map[string]execshell.ExecutionResult{
		"ls-files":  {StandardOutput: "site.yml\x00roles/web/tasks/main.yml\x00README.md\x00"},
		"remote":    {StandardOutput: "git@github.com:owner/repo.git\n"},
		"rev-parse": {StandardOutput: "true\n"},
	}}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	trackedFiles, listError := manager.TrackedFiles(context.Background(), "/repo")
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"site.yml", "roles/web/tasks/main.yml", "README.md"}, trackedFiles)

	remoteURL, remoteError := manager.RemoteURL(context.Background(), "/repo", "origin")
	require.NoError(testInstance, remoteError)
	require.Equal(testInstance, "git@github.com:owner/repo.git", remoteURL)

	require.True(testInstance, manager.IsRepository(context.Background(), "/repo"))
}

func TestRepositoryManagerPropagatesFailures(testInstance *testing.T) {
	executor := &scriptedGitExecutor{failures: map[string]error{
		"log":       errors.New("git failed with exit code 128"),
		"rev-parse": errors.New("git failed with exit code 128"),
	}}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	_, commitsError := manager.Commits(context.Background(), "/not-a-repo")
	require.Error(testInstance, commitsError)
	require.Contains(testInstance, commitsError.Error(), "read commits of /not-a-repo")
	require.False(testInstance, manager.IsRepository(context.Background(), "/not-a-repo"))
}

func TestParseCommitLogRejectsMalformedRecords(testInstance *testing.T) {
	_, malformedError := gitrepo.ParseCommitLog("only-a-hash\n")
	require.Error(testInstance, malformedError)

	_, timestampError := gitrepo.ParseCommitLog("a\x1fe\x1fn\x1fyesterday")
	require.Error(testInstance, timestampError)

	commits, emptyError := gitrepo.ParseCommitLog("\n\n")
	require.NoError(testInstance, emptyError)
	require.Empty(testInstance, commits)
}
