package training

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/dataset"
	"github.com/radon-h2020/radon-defect-predictor/internal/evaluation"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
	pathutils "github.com/radon-h2020/radon-defect-predictor/internal/utils/path"
)

const (
	commandUseConstant                    = "train"
	commandShortDescriptionConstant       = "Train a brand new model from scratch"
	commandLongDescriptionConstant        = "train cross-validates every balancer, normalizer and classifier combination on a labelled CSV file (or a zip archive containing one) and stores the best pipeline in the destination directory."
	commandExecutionErrorTemplateConstant = "training failed: %w"
	unexpectedArgumentsMessageConstant    = "train does not accept positional arguments"
	requiredFlagTemplateConstant          = "--%s is required"
	completionMessageTemplateConstant     = "Model stored in %s (balancer=%s normalizer=%s classifier=%s %s=%.4f)\n"
	flagPathToCSVNameConstant             = "path-to-csv"
	flagPathToCSVDescriptionConstant      = "The path to the csv file (or zip archive) containing the data for training"
	flagBalancersNameConstant             = "balancers"
	flagBalancersDescriptionConstant      = "A list of balancers to balance training data. Possible choices [none, rus, ros]"
	flagNormalizersNameConstant           = "normalizers"
	flagNormalizersDescriptionConstant    = "A list of normalizers to normalize data. Possible choices [none, minmax, std]"
	flagClassifiersNameConstant           = "classifiers"
	flagClassifiersDescriptionConstant    = "A list of classifiers to train. Possible choices [dt, logit, nb, rf, svm]"
	flagDestinationNameConstant           = "destination"
	flagDestinationShorthandConstant      = "d"
	flagDestinationDescriptionConstant    = "Destination folder to save the model and reports"
	flagLabelColumnNameConstant           = "label-column"
	flagLabelColumnDescriptionConstant    = "Name of the column holding the failure-prone label"
	flagFoldsNameConstant                 = "folds"
	flagFoldsDescriptionConstant          = "Number of stratified cross-validation folds"
	flagSeedNameConstant                  = "seed"
	flagSeedDescriptionConstant           = "Seed for sampling, fold assignment and randomized classifiers"
	flagMetricNameConstant                = "metric"
	flagMetricDescriptionConstant         = "Metric used to select the best combination"
	flagFormatNameConstant                = "format"
	flagFormatDescriptionConstant         = "Model encoding"
	logMessageSkippedColumnsConstant      = "Skipped non-numeric columns"
	logFieldColumnsConstant               = "columns"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current training configuration.
type ConfigurationProvider func() Configuration

// ObserverProvider returns the observer notified about training progress.
type ObserverProvider func() Observer

// CommandBuilder assembles the train command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ObserverProvider      ObserverProvider
	Clock                 Clock
}

type commandOptions struct {
	datasetPath string
	destination string
	loadOptions dataset.LoadOptions
	training    Options
	format      artifact.Format
}

// Build constructs the train command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagPathToCSVNameConstant, "", flagPathToCSVDescriptionConstant)
	command.Flags().String(flagBalancersNameConstant, string(preprocess.BalancerNone), flagBalancersDescriptionConstant)
	command.Flags().String(flagNormalizersNameConstant, string(preprocess.NormalizerNone), flagNormalizersDescriptionConstant)
	command.Flags().String(flagClassifiersNameConstant, "", flagClassifiersDescriptionConstant)
	command.Flags().StringP(flagDestinationNameConstant, flagDestinationShorthandConstant, "", flagDestinationDescriptionConstant)
	command.Flags().String(flagLabelColumnNameConstant, "", flagLabelColumnDescriptionConstant)
	command.Flags().Int(flagFoldsNameConstant, 0, flagFoldsDescriptionConstant)
	command.Flags().Uint64(flagSeedNameConstant, 0, flagSeedDescriptionConstant)
	command.Flags().String(flagMetricNameConstant, "", flags.FormatChoiceUsage(string(evaluation.DefaultMetric), evaluation.MetricChoices(), flagMetricDescriptionConstant))
	command.Flags().String(flagFormatNameConstant, "", flags.FormatChoiceUsage(string(artifact.FormatJSON), artifact.FormatChoices(), flagFormatDescriptionConstant))

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

	logger := builder.resolveLogger()
	data, loadError := dataset.LoadFile(options.datasetPath, options.loadOptions)
	if loadError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, loadError)
	}
	if len(data.SkippedColumns) > 0 {
		logger.Debug(logMessageSkippedColumnsConstant, zap.Strings(logFieldColumnsConstant, data.SkippedColumns))
	}

	var observer Observer
	if builder.ObserverProvider != nil {
		observer = builder.ObserverProvider()
	}
	predictor, predictorError := NewDefectPredictor(logger, observer)
	if predictorError != nil {
		return predictorError
	}
	predictor.WithClock(builder.Clock)

	result, trainError := predictor.Train(command.Context(), data, options.training)
	if trainError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, trainError)
	}
	if _, dumpError := predictor.Dump(result, options.destination, options.format); dumpError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, dumpError)
	}

	best := result.Report.Best
	fmt.Fprintf(command.OutOrStdout(), completionMessageTemplateConstant,
		options.destination, best.Balancer, best.Normalizer, best.Classifier,
		result.Report.SelectionMetric, mustValue(best.MeanScores, result.Report.SelectionMetric))
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()
	validator := pathutils.NewPathValidator()

	datasetPathValue, _ := command.Flags().GetString(flagPathToCSVNameConstant)
	if len(strings.TrimSpace(datasetPathValue)) == 0 {
		return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagPathToCSVNameConstant)
	}
	datasetPath, datasetPathError := validator.ExistingFile(datasetPathValue)
	if datasetPathError != nil {
		return commandOptions{}, datasetPathError
	}

	destinationValue, _ := command.Flags().GetString(flagDestinationNameConstant)
	if len(strings.TrimSpace(destinationValue)) == 0 {
		return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagDestinationNameConstant)
	}
	destination, destinationError := validator.ExistingDirectory(destinationValue)
	if destinationError != nil {
		return commandOptions{}, destinationError
	}

	balancersValue, _ := command.Flags().GetString(flagBalancersNameConstant)
	balancers, balancersError := preprocess.ParseBalancers(balancersValue)
	if balancersError != nil {
		return commandOptions{}, balancersError
	}

	normalizersValue, _ := command.Flags().GetString(flagNormalizersNameConstant)
	normalizers, normalizersError := preprocess.ParseNormalizers(normalizersValue)
	if normalizersError != nil {
		return commandOptions{}, normalizersError
	}

	classifiersValue, _ := command.Flags().GetString(flagClassifiersNameConstant)
	if len(strings.TrimSpace(classifiersValue)) == 0 {
		return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagClassifiersNameConstant)
	}
	classifierKinds, classifiersError := classifiers.ParseKinds(classifiersValue)
	if classifiersError != nil {
		return commandOptions{}, classifiersError
	}

	labelColumnValue, _ := command.Flags().GetString(flagLabelColumnNameConstant)
	foldsValue := configuration.Folds
	if command.Flags().Changed(flagFoldsNameConstant) {
		foldsValue, _ = command.Flags().GetInt(flagFoldsNameConstant)
	}
	seedValue := configuration.Seed
	if command.Flags().Changed(flagSeedNameConstant) {
		seedValue, _ = command.Flags().GetUint64(flagSeedNameConstant)
	}

	metricValue, _ := command.Flags().GetString(flagMetricNameConstant)
	selectionMetric, metricError := evaluation.ParseMetric(selectStringValue(metricValue, configuration.SelectionMetric))
	if metricError != nil {
		return commandOptions{}, metricError
	}

	formatValue, _ := command.Flags().GetString(flagFormatNameConstant)
	format, formatError := artifact.ParseFormat(selectStringValue(formatValue, configuration.ModelFormat))
	if formatError != nil {
		return commandOptions{}, formatError
	}

	return commandOptions{
		datasetPath: datasetPath,
		destination: destination,
		loadOptions: dataset.LoadOptions{LabelColumn: selectStringValue(labelColumnValue, configuration.LabelColumn)},
		training: Options{
			Balancers:       balancers,
			Normalizers:     normalizers,
			Classifiers:     classifierKinds,
			FoldCount:       foldsValue,
			Seed:            seedValue,
			SelectionMetric: selectionMetric,
			Parallelism:     configuration.Parallelism,
			TreeCount:       configuration.Trees,
		},
		format: format,
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

func selectStringValue(flagValue string, configurationValue string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}

	return strings.TrimSpace(configurationValue)
}
