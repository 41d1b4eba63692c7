package scoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radon-h2020/radon-defect-predictor/internal/gitrepo"
	"github.com/radon-h2020/radon-defect-predictor/internal/hosting"
	"github.com/radon-h2020/radon-defect-predictor/internal/iacmetrics"
)

const (
	// DefaultRemoteName is the remote used to infer the hosted repository.
	DefaultRemoteName = "origin"

	binarySniffLengthConstant            = 8000
	notRepositoryMessageConstant         = "not a git repository"
	inspectorMissingMessageConstant      = "repository inspector not configured"
	trackerMissingMessageConstant        = "issue tracker not configured"
	notRepositoryTemplateConstant        = "%w: %s"
	remoteLookupErrorTemplateConstant    = "unable to infer repository from remote %s: %w"
	commitsErrorTemplateConstant         = "unable to read commit history: %w"
	trackedFilesErrorTemplateConstant    = "unable to list tracked files: %w"
	projectCreationErrorTemplateConstant = "unable to read project creation date: %w"
	issueCountErrorTemplateConstant      = "unable to count issues: %w"
	fileReadErrorTemplateConstant        = "unable to read %s: %w"
	scoringStartedMessageConstant        = "Scoring repository"
	scoringCompletedMessageConstant      = "Scored repository"
	repositoryInferredMessageConstant    = "Inferred repository from remote"
	logFieldRepositoryPathConstant       = "repository_path"
	logFieldRepositoryConstant           = "repository"
	logFieldRemoteConstant               = "remote"
	logFieldCommitsConstant              = "commits"
	logFieldTrackedFilesConstant         = "tracked_files"
	logFieldIssuesConstant               = "issues"
	logFieldScoresConstant               = "scores"
	defaultCommentMarkerConstant         = "#"
	doubleSlashCommentMarkerConstant     = "//"
	doubleDashCommentMarkerConstant      = "--"
	semicolonCommentMarkerConstant       = ";"
	percentCommentMarkerConstant         = "%"
	minimumParallelismConstant           = 1
)

var (
	// ErrNotRepository indicates the scored path is not a git work tree.
	ErrNotRepository = errors.New(notRepositoryMessageConstant)
	// ErrInspectorNotConfigured indicates a missing repository inspector.
	ErrInspectorNotConfigured = errors.New(inspectorMissingMessageConstant)
	// ErrTrackerNotConfigured indicates a missing issue tracker.
	ErrTrackerNotConfigured = errors.New(trackerMissingMessageConstant)
)

var commentMarkersByExtension = map[string][]string{
	".go":     {doubleSlashCommentMarkerConstant},
	".java":   {doubleSlashCommentMarkerConstant},
	".js":     {doubleSlashCommentMarkerConstant},
	".jsx":    {doubleSlashCommentMarkerConstant},
	".ts":     {doubleSlashCommentMarkerConstant},
	".tsx":    {doubleSlashCommentMarkerConstant},
	".c":      {doubleSlashCommentMarkerConstant},
	".h":      {doubleSlashCommentMarkerConstant},
	".cpp":    {doubleSlashCommentMarkerConstant},
	".cs":     {doubleSlashCommentMarkerConstant},
	".kt":     {doubleSlashCommentMarkerConstant},
	".scala":  {doubleSlashCommentMarkerConstant},
	".swift":  {doubleSlashCommentMarkerConstant},
	".rs":     {doubleSlashCommentMarkerConstant},
	".groovy": {doubleSlashCommentMarkerConstant},
	".php":    {doubleSlashCommentMarkerConstant, defaultCommentMarkerConstant},
	".sql":    {doubleDashCommentMarkerConstant},
	".lua":    {doubleDashCommentMarkerConstant},
	".hs":     {doubleDashCommentMarkerConstant},
	".ini":    {semicolonCommentMarkerConstant, defaultCommentMarkerConstant},
	".erl":    {percentCommentMarkerConstant},
	".tex":    {percentCommentMarkerConstant},
}

// RepositoryInspector is the subset of gitrepo.RepositoryManager the scorer needs.
type RepositoryInspector interface {
	IsRepository(executionContext context.Context, repositoryPath string) bool
	Commits(executionContext context.Context, repositoryPath string) ([]gitrepo.Commit, error)
	TrackedFiles(executionContext context.Context, repositoryPath string) ([]string, error)
	RemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
}

// Request identifies the repository to score. An empty Repository is inferred from the origin remote.
type Request struct {
	RepositoryPath string
	Repository     string
	Language       iacmetrics.Language
}

// Scores are the repository measures.
type Scores struct {
	Repository       string  `json:"repository"`
	Language         string  `json:"language"`
	CommitFrequency  float64 `json:"commit_frequency"`
	CoreContributors int     `json:"core_contributors"`
	IssueFrequency   float64 `json:"issue_frequency"`
	PercentComments  float64 `json:"percent_comments"`
	IaCRatio         float64 `json:"iac_ratio"`
	RepositorySize   int     `json:"repository_size"`
}

// Scorer computes Scores for cloned repositories.
type Scorer struct {
	logger      *zap.Logger
	inspector   RepositoryInspector
	tracker     hosting.IssueTracker
	clock       func() time.Time
	parallelism int
}

type fileSummary struct {
	tracked bool
	text    bool
	lines   iacmetrics.SourceLines
	iac     bool
}

// NewScorer constructs a Scorer.
func NewScorer(logger *zap.Logger, inspector RepositoryInspector, tracker hosting.IssueTracker) (*Scorer, error) {
	if inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if tracker == nil {
		return nil, ErrTrackerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		logger:      logger,
		inspector:   inspector,
		tracker:     tracker,
		clock:       time.Now,
		parallelism: runtime.NumCPU(),
	}, nil
}

// WithClock replaces the time source used for issue frequency.
func (scorer *Scorer) WithClock(clock func() time.Time) *Scorer {
	if clock != nil {
		scorer.clock = clock
	}
	return scorer
}

// WithParallelism bounds the number of files read concurrently.
func (scorer *Scorer) WithParallelism(parallelism int) *Scorer {
	if parallelism >= minimumParallelismConstant {
		scorer.parallelism = parallelism
	}
	return scorer
}

// ResolveRepository parses rawRepository, or infers it from the origin remote when empty.
func (scorer *Scorer) ResolveRepository(ctx context.Context, repositoryPath string, rawRepository string) (hosting.RepositoryReference, error) {
	if len(strings.TrimSpace(rawRepository)) > 0 {
		return hosting.ParseRepositoryReference(rawRepository)
	}

	remoteURL, remoteError := scorer.inspector.RemoteURL(ctx, repositoryPath, DefaultRemoteName)
	if remoteError != nil {
		return hosting.RepositoryReference{}, fmt.Errorf(remoteLookupErrorTemplateConstant, DefaultRemoteName, remoteError)
	}
	parsedRemote, parseError := gitrepo.ParseRemoteURL(remoteURL)
	if parseError != nil {
		return hosting.RepositoryReference{}, fmt.Errorf(remoteLookupErrorTemplateConstant, DefaultRemoteName, parseError)
	}

	scorer.logger.Debug(repositoryInferredMessageConstant,
		zap.String(logFieldRemoteConstant, remoteURL),
		zap.String(logFieldRepositoryConstant, parsedRemote.FullName()),
	)
	return hosting.RepositoryReference{FullName: parsedRemote.FullName()}, nil
}

// Score measures the repository described by request.
func (scorer *Scorer) Score(ctx context.Context, request Request) (Scores, error) {
	repositoryPath := request.RepositoryPath
	if !scorer.inspector.IsRepository(ctx, repositoryPath) {
		return Scores{}, fmt.Errorf(notRepositoryTemplateConstant, ErrNotRepository, repositoryPath)
	}

	reference, referenceError := scorer.ResolveRepository(ctx, repositoryPath, request.Repository)
	if referenceError != nil {
		return Scores{}, referenceError
	}
	scorer.logger.Info(scoringStartedMessageConstant,
		zap.String(logFieldRepositoryPathConstant, repositoryPath),
		zap.String(logFieldRepositoryConstant, reference.String()),
	)

	commits, commitsError := scorer.inspector.Commits(ctx, repositoryPath)
	if commitsError != nil {
		return Scores{}, fmt.Errorf(commitsErrorTemplateConstant, commitsError)
	}

	createdAt, creationError := scorer.tracker.ProjectCreatedAt(ctx, reference)
	if creationError != nil {
		return Scores{}, fmt.Errorf(projectCreationErrorTemplateConstant, creationError)
	}
	issueCount, issuesError := scorer.tracker.CountIssues(ctx, reference)
	if issuesError != nil {
		return Scores{}, fmt.Errorf(issueCountErrorTemplateConstant, issuesError)
	}

	trackedFiles, trackedFilesError := scorer.inspector.TrackedFiles(ctx, repositoryPath)
	if trackedFilesError != nil {
		return Scores{}, fmt.Errorf(trackedFilesErrorTemplateConstant, trackedFilesError)
	}
	summaries, summaryError := scorer.summarizeFiles(ctx, repositoryPath, trackedFiles, request.Language)
	if summaryError != nil {
		return Scores{}, summaryError
	}

	scores := Scores{
		Repository:       reference.String(),
		Language:         string(request.Language),
		CommitFrequency:  CommitFrequency(commits),
		CoreContributors: CoreContributors(commits),
		IssueFrequency:   IssueFrequency(issueCount, createdAt, scorer.clock()),
	}
	aggregateFiles(&scores, summaries)

	scorer.logger.Info(scoringCompletedMessageConstant,
		zap.String(logFieldRepositoryConstant, scores.Repository),
		zap.Int(logFieldCommitsConstant, len(commits)),
		zap.Int(logFieldTrackedFilesConstant, len(trackedFiles)),
		zap.Int(logFieldIssuesConstant, issueCount),
		zap.Any(logFieldScoresConstant, scores),
	)
	return scores, nil
}

func (scorer *Scorer) summarizeFiles(ctx context.Context, repositoryPath string, trackedFiles []string, language iacmetrics.Language) ([]fileSummary, error) {
	summaries := make([]fileSummary, len(trackedFiles))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(scorer.parallelism)

	for fileIndex, relativePath := range trackedFiles {
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			summary, summaryError := summarizeFile(repositoryPath, relativePath, language)
			if summaryError != nil {
				return summaryError
			}
			summaries[fileIndex] = summary
			return nil
		})
	}

	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return summaries, nil
}

func summarizeFile(repositoryPath string, relativePath string, language iacmetrics.Language) (fileSummary, error) {
	absolutePath := filepath.Join(repositoryPath, filepath.FromSlash(relativePath))
	fileInfo, statError := os.Lstat(absolutePath)
	if statError != nil {
		if errors.Is(statError, os.ErrNotExist) {
			return fileSummary{}, nil
		}
		return fileSummary{}, fmt.Errorf(fileReadErrorTemplateConstant, relativePath, statError)
	}
	if !fileInfo.Mode().IsRegular() {
		return fileSummary{tracked: true}, nil
	}

	content, readError := os.ReadFile(absolutePath)
	if readError != nil {
		return fileSummary{}, fmt.Errorf(fileReadErrorTemplateConstant, relativePath, readError)
	}

	summary := fileSummary{tracked: true}
	if isBinary(content) {
		return summary, nil
	}
	textContent := string(content)
	summary.text = true
	summary.lines = iacmetrics.CountSourceLinesWith(textContent, commentMarkers(relativePath)...)
	summary.iac = IsIaCFile(language, relativePath, textContent)
	return summary, nil
}

func aggregateFiles(scores *Scores, summaries []fileSummary) {
	trackedCount := 0
	iacCount := 0
	codeLines := 0
	commentLines := 0
	for _, summary := range summaries {
		if !summary.tracked {
			continue
		}
		trackedCount++
		if summary.iac {
			iacCount++
		}
		if summary.text {
			codeLines += summary.lines.Code
			commentLines += summary.lines.Comment
		}
	}

	scores.RepositorySize = codeLines
	if codeLines+commentLines > 0 {
		scores.PercentComments = float64(commentLines) / float64(codeLines+commentLines)
	}
	if trackedCount > 0 {
		scores.IaCRatio = float64(iacCount) / float64(trackedCount)
	}
}

func commentMarkers(relativePath string) []string {
	if markers, known := commentMarkersByExtension[strings.ToLower(path.Ext(relativePath))]; known {
		return markers
	}
	return []string{defaultCommentMarkerConstant}
}

func isBinary(content []byte) bool {
	sniffed := content
	if len(sniffed) > binarySniffLengthConstant {
		sniffed = sniffed[:binarySniffLengthConstant]
	}
	return bytes.IndexByte(sniffed, 0) >= 0
}
