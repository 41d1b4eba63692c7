package iacmetrics

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Metric names shared by every language.
const (
	metricLinesCode             = "lines_code"
	metricLinesBlank            = "lines_blank"
	metricLinesComment          = "lines_comment"
	metricNumTokens             = "num_tokens"
	metricTextEntropy           = "text_entropy"
	metricNumSuspiciousComments = "num_suspicious_comments"
	metricNumKeys               = "num_keys"
	metricNumURI                = "num_uri"
)

const (
	commentMarkerConstant       = "#"
	inlineCommentMarkerConstant = " #"
)

var (
	suspiciousCommentPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|XXX|BUG|CHECKME|DOCME|TESTME|PENDING)\b`)
	uriPattern               = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.\-]*://[^\s'"]+`)
)

// SourceLines counts code, blank and comment lines of a '#'-commented text.
type SourceLines struct {
	Code    int
	Blank   int
	Comment int
}

// CountSourceLines classifies every line of content using '#' comments.
func CountSourceLines(content string) SourceLines {
	return CountSourceLinesWith(content, commentMarkerConstant)
}

// CountSourceLinesWith classifies every line of content; a line whose first non-blank characters
// match any of commentMarkers is a comment line.
func CountSourceLinesWith(content string, commentMarkers ...string) SourceLines {
	var counts SourceLines
	for _, line := range splitLines(content) {
		trimmedLine := strings.TrimSpace(line)
		switch {
		case len(trimmedLine) == 0:
			counts.Blank++
		case hasAnyPrefix(trimmedLine, commentMarkers):
			counts.Comment++
		default:
			counts.Code++
		}
	}
	return counts
}

func hasAnyPrefix(line string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if len(prefix) > 0 && strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func extractTextMetrics(content string) Metrics {
	lines := CountSourceLines(content)
	metrics := Metrics{
		metricLinesCode:    float64(lines.Code),
		metricLinesBlank:   float64(lines.Blank),
		metricLinesComment: float64(lines.Comment),
		metricNumURI:       float64(len(uriPattern.FindAllString(content, -1))),
	}

	tokenFrequencies := make(map[string]int)
	tokenCount := 0
	suspiciousComments := 0
	for _, line := range splitLines(content) {
		code, comment := splitComment(line)
		if len(comment) > 0 && suspiciousCommentPattern.MatchString(comment) {
			suspiciousComments++
		}
		for _, token := range strings.Fields(code) {
			tokenFrequencies[token]++
			tokenCount++
		}
	}
	metrics[metricNumTokens] = float64(tokenCount)
	metrics[metricNumSuspiciousComments] = float64(suspiciousComments)
	metrics[metricTextEntropy] = shannonEntropy(tokenFrequencies, tokenCount)
	return metrics
}

// splitComment separates the code part of a line from a trailing or full-line '#' comment.
func splitComment(line string) (string, string) {
	trimmedLine := strings.TrimSpace(line)
	if strings.HasPrefix(trimmedLine, commentMarkerConstant) {
		return "", trimmedLine
	}
	if commentIndex := strings.Index(line, inlineCommentMarkerConstant); commentIndex >= 0 {
		return line[:commentIndex], line[commentIndex+1:]
	}
	return line, ""
}

func shannonEntropy(frequencies map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	tokens := make([]string, 0, len(frequencies))
	for token := range frequencies {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	entropy := 0.0
	for _, token := range tokens {
		probability := float64(frequencies[token]) / float64(total)
		entropy -= probability * math.Log2(probability)
	}
	return entropy
}

func splitLines(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.TrimSuffix(normalized, "\n")
	if len(normalized) == 0 {
		return nil
	}
	return strings.Split(normalized, "\n")
}
