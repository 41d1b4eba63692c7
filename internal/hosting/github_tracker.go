package hosting

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	githubIssueStateAllConstant           = "all"
	githubBaseURLTemplateConstant         = "invalid GitHub base URL %q: %w"
	githubReferenceTemplateConstant       = "GitHub repositories are addressed as owner/name: %q"
	githubTrailingSlashConstant           = "/"
	githubRepositoryLookupErrorTemplate   = "unable to look up GitHub repository %s: %w"
	githubIssueListingErrorTemplate       = "unable to list GitHub issues for %s: %w"
	githubRepositoryPartsExpectedConstant = 2
)

// GitHubOptions configures a GitHubTracker. BaseURL targets GitHub Enterprise and must include
// the API prefix, for example https://github.example.com/api/v3/.
type GitHubOptions struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// GitHubTracker implements IssueTracker against the GitHub REST API.
type GitHubTracker struct {
	client *github.Client
	logger *zap.Logger
}

// NewGitHubTracker constructs a tracker; an empty token yields unauthenticated requests.
func NewGitHubTracker(logger *zap.Logger, options GitHubOptions) (*GitHubTracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := options.HTTPClient
	trimmedToken := strings.TrimSpace(options.Token)
	if len(trimmedToken) > 0 {
		tokenContext := context.Background()
		if httpClient != nil {
			tokenContext = context.WithValue(tokenContext, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(tokenContext, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedToken}))
	}

	client := github.NewClient(httpClient)
	trimmedBaseURL := strings.TrimSpace(options.BaseURL)
	if len(trimmedBaseURL) > 0 {
		if !strings.HasSuffix(trimmedBaseURL, githubTrailingSlashConstant) {
			trimmedBaseURL += githubTrailingSlashConstant
		}
		parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
		if parseError != nil {
			return nil, fmt.Errorf(githubBaseURLTemplateConstant, options.BaseURL, parseError)
		}
		client.BaseURL = parsedBaseURL
	}

	return &GitHubTracker{client: client, logger: logger}, nil
}

// ProjectCreatedAt returns the repository creation time.
func (tracker *GitHubTracker) ProjectCreatedAt(ctx context.Context, reference RepositoryReference) (time.Time, error) {
	repository, lookupError := tracker.repository(ctx, reference)
	if lookupError != nil {
		return time.Time{}, lookupError
	}
	return repository.GetCreatedAt().Time, nil
}

// CountIssues counts every issue regardless of state, excluding pull requests.
func (tracker *GitHubTracker) CountIssues(ctx context.Context, reference RepositoryReference) (int, error) {
	repository, lookupError := tracker.repository(ctx, reference)
	if lookupError != nil {
		return 0, lookupError
	}
	owner := repository.GetOwner().GetLogin()
	name := repository.GetName()

	listOptions := &github.IssueListByRepoOptions{
		State:       githubIssueStateAllConstant,
		ListOptions: github.ListOptions{PerPage: issuesPerPageConstant},
	}

	issueCount := 0
	for {
		issues, response, listError := tracker.client.Issues.ListByRepo(ctx, owner, name, listOptions)
		if listError != nil {
			return 0, tracker.wrapError(githubOperationIssuesConstant, response, fmt.Errorf(githubIssueListingErrorTemplate, reference, listError))
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			issueCount++
		}
		tracker.logger.Debug(trackerPageFetchedMessageConstant,
			zap.String(trackerLogFieldHostConstant, string(HostGitHub)),
			zap.Int(trackerLogFieldPageConstant, listOptions.ListOptions.Page),
		)
		if response == nil || response.NextPage == 0 {
			break
		}
		listOptions.ListOptions.Page = response.NextPage
	}

	tracker.logger.Debug(trackerIssuesCountedMessageConstant,
		zap.String(trackerLogFieldHostConstant, string(HostGitHub)),
		zap.String(trackerLogFieldRepositoryConstant, reference.String()),
		zap.Int(trackerLogFieldIssueCountConstant, issueCount),
	)
	return issueCount, nil
}

func (tracker *GitHubTracker) repository(ctx context.Context, reference RepositoryReference) (*github.Repository, error) {
	if reference.ID > 0 {
		repository, response, lookupError := tracker.client.Repositories.GetByID(ctx, reference.ID)
		if lookupError != nil {
			return nil, tracker.wrapError(githubOperationRepositoryConstant, response, fmt.Errorf(githubRepositoryLookupErrorTemplate, reference, lookupError))
		}
		return repository, nil
	}

	parts := strings.Split(reference.FullName, repositoryPathSeparatorConstant)
	if len(parts) != githubRepositoryPartsExpectedConstant {
		return nil, fmt.Errorf(githubReferenceTemplateConstant, reference.FullName)
	}
	repository, response, lookupError := tracker.client.Repositories.Get(ctx, parts[0], parts[1])
	if lookupError != nil {
		return nil, tracker.wrapError(githubOperationRepositoryConstant, response, fmt.Errorf(githubRepositoryLookupErrorTemplate, reference, lookupError))
	}
	return repository, nil
}

func (tracker *GitHubTracker) wrapError(operation string, response *github.Response, cause error) error {
	if response == nil || response.Response == nil {
		return cause
	}
	return APIError{Host: HostGitHub, Operation: operation, StatusCode: response.StatusCode, Cause: cause}
}
