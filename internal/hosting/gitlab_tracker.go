package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
)

const (
	// DefaultGitLabBaseURL targets gitlab.com.
	DefaultGitLabBaseURL = "https://gitlab.com/api/v4"

	gitlabTokenHeaderConstant           = "PRIVATE-TOKEN"
	gitlabNextPageHeaderConstant        = "X-Next-Page"
	gitlabProjectsPathConstant          = "/projects/"
	gitlabIssuesPathConstant            = "/issues"
	gitlabScopeParameterConstant        = "scope"
	gitlabScopeAllValueConstant         = "all"
	gitlabPerPageParameterConstant      = "per_page"
	gitlabPageParameterConstant         = "page"
	gitlabFirstPageConstant             = "1"
	gitlabAcceptHeaderConstant          = "Accept"
	gitlabAcceptValueConstant           = "application/json"
	gitlabRequestErrorTemplateConstant  = "unable to build GitLab request: %w"
	gitlabResponseErrorTemplateConstant = "GitLab %s request for %s failed: %w"
	gitlabDecodeErrorTemplateConstant   = "unable to decode GitLab %s response: %w"
)

// GitLabOptions configures a GitLabTracker.
type GitLabOptions struct {
	Token   string
	BaseURL string
	Client  *retryablehttp.Client
}

// GitLabTracker implements IssueTracker against the GitLab REST v4 API.
type GitLabTracker struct {
	client  *retryablehttp.Client
	baseURL string
	token   string
	logger  *zap.Logger
}

type gitlabProject struct {
	CreatedAt time.Time `json:"created_at"`
}

// NewGitLabTracker constructs a tracker; an empty base URL targets gitlab.com.
func NewGitLabTracker(logger *zap.Logger, options GitLabOptions) (*GitLabTracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := options.Client
	if client == nil {
		client = httpclient.NewRetryableClient(logger, httpclient.Options{RetryMax: httpclient.DefaultRetryMax})
	}
	baseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), repositoryPathSeparatorConstant)
	if len(baseURL) == 0 {
		baseURL = DefaultGitLabBaseURL
	}
	return &GitLabTracker{
		client:  client,
		baseURL: baseURL,
		token:   strings.TrimSpace(options.Token),
		logger:  logger,
	}, nil
}

// ProjectCreatedAt returns the project creation time.
func (tracker *GitLabTracker) ProjectCreatedAt(ctx context.Context, reference RepositoryReference) (time.Time, error) {
	response, requestError := tracker.get(ctx, tracker.projectURL(reference), gitlabOperationProjectConstant, reference)
	if requestError != nil {
		return time.Time{}, requestError
	}
	defer response.Body.Close()

	var project gitlabProject
	if decodeError := json.NewDecoder(response.Body).Decode(&project); decodeError != nil {
		return time.Time{}, fmt.Errorf(gitlabDecodeErrorTemplateConstant, gitlabOperationProjectConstant, decodeError)
	}
	return project.CreatedAt, nil
}

// CountIssues counts every issue of the project regardless of state.
func (tracker *GitLabTracker) CountIssues(ctx context.Context, reference RepositoryReference) (int, error) {
	issueCount := 0
	page := gitlabFirstPageConstant
	for len(page) > 0 {
		query := url.Values{}
		query.Set(gitlabScopeParameterConstant, gitlabScopeAllValueConstant)
		query.Set(gitlabPerPageParameterConstant, strconv.Itoa(issuesPerPageConstant))
		query.Set(gitlabPageParameterConstant, page)
		issuesURL := tracker.projectURL(reference) + gitlabIssuesPathConstant + "?" + query.Encode()

		response, requestError := tracker.get(ctx, issuesURL, gitlabOperationIssuesConstant, reference)
		if requestError != nil {
			return 0, requestError
		}

		var issues []json.RawMessage
		decodeError := json.NewDecoder(response.Body).Decode(&issues)
		response.Body.Close()
		if decodeError != nil {
			return 0, fmt.Errorf(gitlabDecodeErrorTemplateConstant, gitlabOperationIssuesConstant, decodeError)
		}
		issueCount += len(issues)

		tracker.logger.Debug(trackerPageFetchedMessageConstant,
			zap.String(trackerLogFieldHostConstant, string(HostGitLab)),
			zap.String(trackerLogFieldPageConstant, page),
		)
		page = strings.TrimSpace(response.Header.Get(gitlabNextPageHeaderConstant))
	}

	tracker.logger.Debug(trackerIssuesCountedMessageConstant,
		zap.String(trackerLogFieldHostConstant, string(HostGitLab)),
		zap.String(trackerLogFieldRepositoryConstant, reference.String()),
		zap.Int(trackerLogFieldIssueCountConstant, issueCount),
	)
	return issueCount, nil
}

func (tracker *GitLabTracker) projectURL(reference RepositoryReference) string {
	projectIdentifier := url.PathEscape(reference.FullName)
	if reference.ID > 0 {
		projectIdentifier = strconv.FormatInt(reference.ID, 10)
	}
	return tracker.baseURL + gitlabProjectsPathConstant + projectIdentifier
}

func (tracker *GitLabTracker) get(ctx context.Context, requestURL string, operation string, reference RepositoryReference) (*http.Response, error) {
	request, requestError := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if requestError != nil {
		return nil, fmt.Errorf(gitlabRequestErrorTemplateConstant, requestError)
	}
	request.Header.Set(gitlabAcceptHeaderConstant, gitlabAcceptValueConstant)
	if len(tracker.token) > 0 {
		request.Header.Set(gitlabTokenHeaderConstant, tracker.token)
	}

	response, responseError := tracker.client.Do(request)
	if responseError != nil {
		return nil, fmt.Errorf(gitlabResponseErrorTemplateConstant, operation, reference, responseError)
	}
	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		response.Body.Close()
		return nil, APIError{Host: HostGitLab, Operation: operation, StatusCode: response.StatusCode}
	}
	return response, nil
}
