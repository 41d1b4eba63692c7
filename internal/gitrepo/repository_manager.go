package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/radon-h2020/radon-defect-predictor/internal/execshell"
)

const (
	gitLogSubcommandConstant            = "log"
	gitNoMergesFlagConstant             = "--no-merges"
	gitCommitFormatFlagConstant         = "--pretty=format:%H%x1f%ae%x1f%an%x1f%at"
	gitLSFilesSubcommandConstant        = "ls-files"
	gitNullTerminatedFlagConstant       = "-z"
	gitRemoteSubcommandConstant         = "remote"
	gitRemoteGetURLSubcommandConstant   = "get-url"
	gitRevParseSubcommandConstant       = "rev-parse"
	gitWorkTreeFlagConstant             = "--is-inside-work-tree"
	gitWorkTreeTrueValueConstant        = "true"
	commitFieldSeparatorConstant        = "\x1f"
	trackedFileSeparatorConstant        = "\x00"
	commitFieldCountConstant            = 4
	executorNotConfiguredMessage        = "git executor not configured"
	malformedCommitLineTemplateConstant = "malformed commit record %q"
	invalidCommitTimestampTemplate      = "invalid commit timestamp %q: %w"
	repositoryOperationTemplateConstant = "%s %s: %w"
	readCommitsOperationName            = "read commits of"
	listFilesOperationName              = "list tracked files of"
	readRemoteOperationName             = "read remote of"
)

// ErrExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// GitExecutor is the subset of execshell.ShellExecutor required by RepositoryManager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Commit describes a single non-merge commit.
type Commit struct {
	Hash        string
	AuthorEmail string
	AuthorName  string
	AuthoredAt  time.Time
}

// RepositoryManager exposes the repository queries needed to score a project.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// IsRepository reports whether the path is inside a git work tree.
func (manager *RepositoryManager) IsRepository(executionContext context.Context, repositoryPath string) bool {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitWorkTreeFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return false
	}
	return strings.TrimSpace(executionResult.StandardOutput) == gitWorkTreeTrueValueConstant
}

// Commits returns the non-merge commits reachable from HEAD, newest first.
func (manager *RepositoryManager) Commits(executionContext context.Context, repositoryPath string) ([]Commit, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitLogSubcommandConstant, gitNoMergesFlagConstant, gitCommitFormatFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return nil, fmt.Errorf(repositoryOperationTemplateConstant, readCommitsOperationName, repositoryPath, executionError)
	}
	return ParseCommitLog(executionResult.StandardOutput)
}

// TrackedFiles returns repository-relative paths of every file in the index.
func (manager *RepositoryManager) TrackedFiles(executionContext context.Context, repositoryPath string) ([]string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitLSFilesSubcommandConstant, gitNullTerminatedFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return nil, fmt.Errorf(repositoryOperationTemplateConstant, listFilesOperationName, repositoryPath, executionError)
	}

	var trackedFiles []string
	for _, entry := range strings.Split(executionResult.StandardOutput, trackedFileSeparatorConstant) {
		if len(entry) == 0 {
			continue
		}
		trackedFiles = append(trackedFiles, entry)
	}
	return trackedFiles, nil
}

// RemoteURL returns the configured URL of the named remote.
func (manager *RepositoryManager) RemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, remoteName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", fmt.Errorf(repositoryOperationTemplateConstant, readRemoteOperationName, repositoryPath, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// ParseCommitLog decodes the unit-separator delimited output produced by Commits.
func ParseCommitLog(rawLog string) ([]Commit, error) {
	var commits []Commit
	for _, line := range strings.Split(rawLog, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}

		fields := strings.Split(trimmedLine, commitFieldSeparatorConstant)
		if len(fields) != commitFieldCountConstant {
			return nil, fmt.Errorf(malformedCommitLineTemplateConstant, trimmedLine)
		}

		unixSeconds, parseError := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if parseError != nil {
			return nil, fmt.Errorf(invalidCommitTimestampTemplate, fields[3], parseError)
		}

		commits = append(commits, Commit{
			Hash:        fields[0],
			AuthorEmail: strings.ToLower(strings.TrimSpace(fields[1])),
			AuthorName:  strings.TrimSpace(fields[2]),
			AuthoredAt:  time.Unix(unixSeconds, 0).UTC(),
		})
	}
	return commits, nil
}
