package iacmetrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
	pathutils "github.com/radon-h2020/radon-defect-predictor/internal/utils/path"
)

const (
	commandUseConstant                    = "metrics"
	commandShortDescriptionConstant       = "Extract IaC metrics from a file"
	commandLongDescriptionConstant        = "metrics extracts the static metrics used for defect prediction from an Ansible or TOSCA file and prints them as JSON."
	commandExecutionErrorTemplateConstant = "metric extraction failed: %w"
	unexpectedArgumentsMessageConstant    = "metrics does not accept positional arguments"
	requiredFlagTemplateConstant          = "--%s is required"
	flagPathToFileNameConstant            = "path-to-file"
	flagPathToFileDescriptionConstant     = "The path to the file to analyze"
	flagLanguageNameConstant              = "language"
	flagLanguageShorthandConstant         = "l"
	flagLanguageDescriptionConstant       = "The language of the file"
	jsonIndentConstant                    = "  "
	logMessageMetricsExtracted            = "Metrics extracted"
	logFieldFile                          = "file"
	logFieldLanguage                      = "language"
	logFieldMetricCount                   = "metric_count"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the metrics command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
}

// Build constructs the metrics command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagPathToFileNameConstant, "", flagPathToFileDescriptionConstant)
	command.Flags().StringP(flagLanguageNameConstant, flagLanguageShorthandConstant, "", flags.FormatChoiceUsage(string(LanguageAnsible), LanguageChoices(), flagLanguageDescriptionConstant))

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	pathValue, _ := command.Flags().GetString(flagPathToFileNameConstant)
	if len(strings.TrimSpace(pathValue)) == 0 {
		return fmt.Errorf(requiredFlagTemplateConstant, flagPathToFileNameConstant)
	}
	filePath, pathError := pathutils.NewPathValidator().ExistingFile(pathValue)
	if pathError != nil {
		return pathError
	}

	languageValue, _ := command.Flags().GetString(flagLanguageNameConstant)
	if len(strings.TrimSpace(languageValue)) == 0 {
		return fmt.Errorf(requiredFlagTemplateConstant, flagLanguageNameConstant)
	}
	language, languageError := ParseLanguage(languageValue)
	if languageError != nil {
		return languageError
	}

	content, readError := os.ReadFile(filePath)
	if readError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, readError)
	}
	metrics, extractError := Extract(language, string(content))
	if extractError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, extractError)
	}

	builder.resolveLogger().Debug(logMessageMetricsExtracted,
		zap.String(logFieldFile, filePath),
		zap.String(logFieldLanguage, string(language)),
		zap.Int(logFieldMetricCount, len(metrics)),
	)

	encoder := json.NewEncoder(command.OutOrStdout())
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(metrics)
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
