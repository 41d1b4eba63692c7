package iacmetrics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

// Language names a supported IaC language.
type Language string

// Supported languages.
const (
	LanguageAnsible Language = "ansible"
	LanguageTOSCA   Language = "tosca"
)

const (
	parseErrorTemplateConstant         = "invalid yaml: %v"
	unsupportedLanguageTemplate        = "unsupported language %q"
	toscaRootNotMappingMessage         = "tosca document root must be a mapping"
	ansibleRootNotSequenceMessage      = "ansible document root must be a list of plays or tasks"
	toscaDefinitionsVersionKeyConstant = "tosca_definitions_version"
)

// ParseError reports content that is not valid YAML for the requested language.
type ParseError struct {
	Cause error
}

// Error describes the parse failure.
func (parseError ParseError) Error() string {
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.Cause)
}

// Unwrap exposes the decoder error.
func (parseError ParseError) Unwrap() error {
	return parseError.Cause
}

// Metrics maps metric names to values.
type Metrics map[string]float64

// Names returns the metric names in lexical order.
func (metrics Metrics) Names() []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LanguageChoices lists the accepted language names.
func LanguageChoices() []string {
	return []string{string(LanguageAnsible), string(LanguageTOSCA)}
}

// ParseLanguage validates a language name.
func ParseLanguage(rawValue string) (Language, error) {
	parsedChoice, parseError := flags.ParseChoice(rawValue, LanguageChoices())
	if parseError != nil {
		return "", parseError
	}
	return Language(parsedChoice), nil
}

// Extract computes the text metrics and the language specific metrics of content.
func Extract(language Language, content string) (Metrics, error) {
	if language != LanguageAnsible && language != LanguageTOSCA {
		return nil, fmt.Errorf(unsupportedLanguageTemplate, language)
	}

	documents, decodeError := decodeDocuments(content)
	if decodeError != nil {
		return nil, decodeError
	}

	metrics := extractTextMetrics(content)
	metrics[metricNumKeys] = float64(countKeys(documents))

	switch language {
	case LanguageAnsible:
		if shapeError := validateAnsibleShape(documents); shapeError != nil {
			return nil, shapeError
		}
		extractAnsibleMetrics(documents, metrics)
	case LanguageTOSCA:
		if shapeError := validateTOSCAShape(documents); shapeError != nil {
			return nil, shapeError
		}
		extractTOSCAMetrics(documents, metrics)
	}
	return metrics, nil
}

// IsTOSCADefinition reports whether content is a YAML mapping declaring tosca_definitions_version.
func IsTOSCADefinition(content string) bool {
	documents, decodeError := decodeDocuments(content)
	if decodeError != nil {
		return false
	}
	for _, document := range documents {
		if mapping, isMapping := asMapping(document); isMapping {
			if _, declared := mapping[toscaDefinitionsVersionKeyConstant]; declared {
				return true
			}
		}
	}
	return false
}

func decodeDocuments(content string) ([]any, error) {
	decoder := yaml.NewDecoder(strings.NewReader(content))
	var documents []any
	for {
		var document any
		decodeError := decoder.Decode(&document)
		if errors.Is(decodeError, io.EOF) {
			break
		}
		if decodeError != nil {
			return nil, ParseError{Cause: decodeError}
		}
		if document != nil {
			documents = append(documents, document)
		}
	}
	return documents, nil
}

func validateAnsibleShape(documents []any) error {
	for _, document := range documents {
		if _, isSequence := document.([]any); !isSequence {
			return ParseError{Cause: errors.New(ansibleRootNotSequenceMessage)}
		}
	}
	return nil
}

func validateTOSCAShape(documents []any) error {
	for _, document := range documents {
		if _, isMapping := asMapping(document); !isMapping {
			return ParseError{Cause: errors.New(toscaRootNotMappingMessage)}
		}
	}
	return nil
}
