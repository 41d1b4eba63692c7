package scoring

import (
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/radon-h2020/radon-defect-predictor/internal/gitrepo"
	"github.com/radon-h2020/radon-defect-predictor/internal/iacmetrics"
)

const (
	// CoreContributorShare is the fraction of commits the core contributors must cover.
	CoreContributorShare = 0.8

	averageMonthDuration = time.Duration(30.436875 * 24 * float64(time.Hour))
	minimumMonths        = 1.0

	yamlShortExtensionConstant = ".yml"
	yamlLongExtensionConstant  = ".yaml"
	toscaExtensionConstant     = ".tosca"
)

var ciDirectoryNames = map[string]struct{}{
	".github":          {},
	".gitlab":          {},
	".circleci":        {},
	".buildkite":       {},
	".azure-pipelines": {},
	".woodpecker":      {},
	".tekton":          {},
}

var ciFileNames = map[string]struct{}{
	".travis.yml":             {},
	".gitlab-ci.yml":          {},
	"azure-pipelines.yml":     {},
	"bitbucket-pipelines.yml": {},
	".pre-commit-config.yaml": {},
	"codecov.yml":             {},
	".codecov.yml":            {},
	"docker-compose.yml":      {},
	"docker-compose.yaml":     {},
	"mkdocs.yml":              {},
}

// MonthsBetween returns the span in average-length months, never less than one.
func MonthsBetween(start time.Time, end time.Time) float64 {
	if end.Before(start) {
		start, end = end, start
	}
	return math.Max(minimumMonths, float64(end.Sub(start))/float64(averageMonthDuration))
}

// CommitFrequency returns commits per month between the first and the last commit.
func CommitFrequency(commits []gitrepo.Commit) float64 {
	if len(commits) == 0 {
		return 0
	}
	earliest := commits[0].AuthoredAt
	latest := commits[0].AuthoredAt
	for _, commit := range commits[1:] {
		if commit.AuthoredAt.Before(earliest) {
			earliest = commit.AuthoredAt
		}
		if commit.AuthoredAt.After(latest) {
			latest = commit.AuthoredAt
		}
	}
	return float64(len(commits)) / MonthsBetween(earliest, latest)
}

// CoreContributors returns the smallest number of authors whose commits cover
// CoreContributorShare of all commits. Authors are identified by e-mail.
func CoreContributors(commits []gitrepo.Commit) int {
	if len(commits) == 0 {
		return 0
	}
	commitsByAuthor := make(map[string]int)
	for _, commit := range commits {
		commitsByAuthor[strings.ToLower(strings.TrimSpace(commit.AuthorEmail))]++
	}
	authorCommitCounts := make([]int, 0, len(commitsByAuthor))
	for _, commitCount := range commitsByAuthor {
		authorCommitCounts = append(authorCommitCounts, commitCount)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(authorCommitCounts)))

	threshold := CoreContributorShare * float64(len(commits))
	covered := 0
	for index, commitCount := range authorCommitCounts {
		covered += commitCount
		if float64(covered) >= threshold {
			return index + 1
		}
	}
	return len(authorCommitCounts)
}

// IssueFrequency returns issues per month since the project was created.
func IssueFrequency(issueCount int, createdAt time.Time, now time.Time) float64 {
	if issueCount <= 0 {
		return 0
	}
	return float64(issueCount) / MonthsBetween(createdAt, now)
}

// IsCIPath reports whether a repository-relative path belongs to CI or tooling metadata.
func IsCIPath(relativePath string) bool {
	slashPath := strings.ReplaceAll(relativePath, "\\", "/")
	if _, ciFile := ciFileNames[strings.ToLower(path.Base(slashPath))]; ciFile {
		return true
	}
	for _, segment := range strings.Split(path.Dir(slashPath), "/") {
		if _, ciDirectory := ciDirectoryNames[strings.ToLower(segment)]; ciDirectory {
			return true
		}
	}
	return false
}

// IsYAMLPath reports whether the path carries a YAML extension.
func IsYAMLPath(relativePath string) bool {
	extension := strings.ToLower(path.Ext(relativePath))
	return extension == yamlShortExtensionConstant || extension == yamlLongExtensionConstant
}

// IsIaCFile reports whether a tracked file counts as infrastructure code for language. A TOSCA
// file counts only when content declares tosca_definitions_version.
func IsIaCFile(language iacmetrics.Language, relativePath string, content string) bool {
	if IsCIPath(relativePath) {
		return false
	}
	switch language {
	case iacmetrics.LanguageAnsible:
		return IsYAMLPath(relativePath)
	case iacmetrics.LanguageTOSCA:
		toscaPath := IsYAMLPath(relativePath) || strings.ToLower(path.Ext(relativePath)) == toscaExtensionConstant
		return toscaPath && iacmetrics.IsTOSCADefinition(content)
	default:
		return false
	}
}
