package prediction

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/iacmetrics"
	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
	pathutils "github.com/radon-h2020/radon-defect-predictor/internal/utils/path"
)

const (
	commandUseConstant                    = "predict"
	commandShortDescriptionConstant       = "Predict an unseen instance"
	commandLongDescriptionConstant        = "predict extracts metrics from an Ansible or TOSCA file, applies the model stored in the model directory and appends the verdict to the prediction report in the destination directory."
	commandExecutionErrorTemplateConstant = "prediction failed: %w"
	unexpectedArgumentsMessageConstant    = "predict does not accept positional arguments"
	requiredFlagTemplateConstant          = "--%s is required"
	flagPathToModelNameConstant           = "path-to-model"
	flagPathToModelDescriptionConstant    = "The path to the directory containing the pre-trained model"
	flagPathToFileNameConstant            = "path-to-file"
	flagPathToFileDescriptionConstant     = "The path to the file to analyze"
	flagLanguageNameConstant              = "language"
	flagLanguageShorthandConstant         = "l"
	flagLanguageDescriptionConstant       = "The language of the file"
	flagDestinationNameConstant           = "destination"
	flagDestinationShorthandConstant      = "d"
	flagDestinationDescriptionConstant    = "Destination folder to save the prediction report"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current prediction configuration.
type ConfigurationProvider func() Configuration

// ObserverProvider returns the observer notified about predictions.
type ObserverProvider func() Observer

// CommandBuilder assembles the predict command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ObserverProvider      ObserverProvider
	Clock                 func() time.Time
}

type commandOptions struct {
	request     Request
	destination string
}

// Build constructs the predict command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagPathToModelNameConstant, "", flagPathToModelDescriptionConstant)
	command.Flags().String(flagPathToFileNameConstant, "", flagPathToFileDescriptionConstant)
	command.Flags().StringP(flagLanguageNameConstant, flagLanguageShorthandConstant, string(iacmetrics.LanguageAnsible), flags.FormatChoiceUsage(string(iacmetrics.LanguageAnsible), iacmetrics.LanguageChoices(), flagLanguageDescriptionConstant))
	command.Flags().StringP(flagDestinationNameConstant, flagDestinationShorthandConstant, "", flagDestinationDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	var observer Observer
	if builder.ObserverProvider != nil {
		observer = builder.ObserverProvider()
	}
	predictor := NewPredictor(builder.resolveLogger(), observer).WithClock(builder.Clock)

	report, predictError := predictor.Predict(command.Context(), options.request)
	if predictError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, predictError)
	}

	configuration := builder.resolveConfiguration()
	reportPath := filepath.Join(options.destination, configuration.ReportFileName)
	if appendError := AppendReport(reportPath, report); appendError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, appendError)
	}

	encodedReport, encodeError := EncodeReport(report)
	if encodeError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, encodeError)
	}
	fmt.Fprintln(command.OutOrStdout(), string(encodedReport))
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	validator := pathutils.NewPathValidator()

	modelDirectoryValue, _ := command.Flags().GetString(flagPathToModelNameConstant)
	if len(strings.TrimSpace(modelDirectoryValue)) == 0 {
		return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagPathToModelNameConstant)
	}
	modelDirectory, modelDirectoryError := validator.ExistingDirectory(modelDirectoryValue)
	if modelDirectoryError != nil {
		return commandOptions{}, modelDirectoryError
	}

	filePathValue, _ := command.Flags().GetString(flagPathToFileNameConstant)
	if len(strings.TrimSpace(filePathValue)) == 0 {
		return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagPathToFileNameConstant)
	}
	filePath, filePathError := validator.ExistingFile(filePathValue)
	if filePathError != nil {
		return commandOptions{}, filePathError
	}

	languageValue, _ := command.Flags().GetString(flagLanguageNameConstant)
	language, languageError := iacmetrics.ParseLanguage(languageValue)
	if languageError != nil {
		return commandOptions{}, languageError
	}

	destinationValue, _ := command.Flags().GetString(flagDestinationNameConstant)
	if len(strings.TrimSpace(destinationValue)) == 0 {
		return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagDestinationNameConstant)
	}
	destination, destinationError := validator.ExistingDirectory(destinationValue)
	if destinationError != nil {
		return commandOptions{}, destinationError
	}

	return commandOptions{
		request: Request{
			ModelDirectory: modelDirectory,
			FilePath:       filePath,
			Language:       language,
		},
		destination: destination,
	}, nil
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

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.Sanitize()
}
