package hosting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

const (
	hostGitHubValueConstant             = "github"
	hostGitLabValueConstant             = "gitlab"
	repositoryPathSeparatorConstant     = "/"
	apiErrorTemplateConstant            = "%s %s request returned status %d"
	invalidReferenceTemplateConstant    = "invalid repository reference %q: expected owner/name or a numeric id"
	unsupportedHostTrackerTemplate      = "unsupported host %q"
	issuesPerPageConstant               = 100
	repositoryReferenceMissingConstant  = "repository reference must be provided"
	githubOperationRepositoryConstant   = "repository"
	githubOperationIssuesConstant       = "issues"
	gitlabOperationProjectConstant      = "project"
	gitlabOperationIssuesConstant       = "issues"
	trackerLogFieldRepositoryConstant   = "repository"
	trackerLogFieldHostConstant         = "host"
	trackerLogFieldIssueCountConstant   = "issues"
	trackerLogFieldPageConstant         = "page"
	trackerIssuesCountedMessageConstant = "Counted repository issues"
	trackerPageFetchedMessageConstant   = "Fetched issue page"
)

// Host identifies a supported code-hosting service.
type Host string

// Supported hosts.
const (
	HostGitHub Host = Host(hostGitHubValueConstant)
	HostGitLab Host = Host(hostGitLabValueConstant)
)

// HostChoices lists the accepted --host values.
var HostChoices = []string{hostGitHubValueConstant, hostGitLabValueConstant}

// ParseHost validates a host name case-insensitively.
func ParseHost(rawValue string) (Host, error) {
	parsedValue, parseError := flags.ParseChoice(rawValue, HostChoices)
	if parseError != nil {
		return "", parseError
	}
	return Host(parsedValue), nil
}

// ErrRepositoryReferenceMissing indicates an empty repository reference.
var ErrRepositoryReferenceMissing = errors.New(repositoryReferenceMissingConstant)

// RepositoryReference names a hosted project either by its full path or by its numeric id.
type RepositoryReference struct {
	FullName string
	ID       int64
}

// String renders the reference the way it was supplied.
func (reference RepositoryReference) String() string {
	if reference.ID > 0 {
		return strconv.FormatInt(reference.ID, 10)
	}
	return reference.FullName
}

// ParseRepositoryReference accepts "owner/name" (GitLab groups may nest) or a positive numeric id.
func ParseRepositoryReference(rawValue string) (RepositoryReference, error) {
	trimmedValue := strings.Trim(strings.TrimSpace(rawValue), repositoryPathSeparatorConstant)
	if len(trimmedValue) == 0 {
		return RepositoryReference{}, ErrRepositoryReferenceMissing
	}

	if numericID, parseError := strconv.ParseInt(trimmedValue, 10, 64); parseError == nil {
		if numericID <= 0 {
			return RepositoryReference{}, fmt.Errorf(invalidReferenceTemplateConstant, rawValue)
		}
		return RepositoryReference{ID: numericID}, nil
	}

	segments := strings.Split(trimmedValue, repositoryPathSeparatorConstant)
	if len(segments) < 2 {
		return RepositoryReference{}, fmt.Errorf(invalidReferenceTemplateConstant, rawValue)
	}
	for _, segment := range segments {
		if len(strings.TrimSpace(segment)) == 0 {
			return RepositoryReference{}, fmt.Errorf(invalidReferenceTemplateConstant, rawValue)
		}
	}
	return RepositoryReference{FullName: trimmedValue}, nil
}

// IssueTracker exposes the project facts needed to score a repository.
type IssueTracker interface {
	ProjectCreatedAt(ctx context.Context, reference RepositoryReference) (time.Time, error)
	CountIssues(ctx context.Context, reference RepositoryReference) (int, error)
}

// APIError reports a non-success response from a hosting API.
type APIError struct {
	Host       Host
	Operation  string
	StatusCode int
	Cause      error
}

// Error describes the failed request.
func (apiError APIError) Error() string {
	return fmt.Sprintf(apiErrorTemplateConstant, apiError.Host, apiError.Operation, apiError.StatusCode)
}

// Unwrap exposes the underlying client error, if any.
func (apiError APIError) Unwrap() error {
	return apiError.Cause
}

// TrackerOptions configures NewIssueTracker.
type TrackerOptions struct {
	Token         string
	GitHubBaseURL string
	GitLabBaseURL string
	HTTP          httpclient.Options
}

// NewIssueTracker builds the tracker for host.
func NewIssueTracker(logger *zap.Logger, host Host, options TrackerOptions) (IssueTracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch host {
	case HostGitHub:
		return NewGitHubTracker(logger, GitHubOptions{
			Token:      options.Token,
			BaseURL:    options.GitHubBaseURL,
			HTTPClient: httpclient.NewStandardClient(logger, options.HTTP),
		})
	case HostGitLab:
		return NewGitLabTracker(logger, GitLabOptions{
			Token:   options.Token,
			BaseURL: options.GitLabBaseURL,
			Client:  httpclient.NewRetryableClient(logger, options.HTTP),
		})
	default:
		return nil, fmt.Errorf(unsupportedHostTrackerTemplate, host)
	}
}
