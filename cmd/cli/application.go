package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/iacmetrics"
	"github.com/radon-h2020/radon-defect-predictor/internal/instrumentation"
	"github.com/radon-h2020/radon-defect-predictor/internal/modelhub"
	"github.com/radon-h2020/radon-defect-predictor/internal/prediction"
	"github.com/radon-h2020/radon-defect-predictor/internal/training"
	"github.com/radon-h2020/radon-defect-predictor/internal/utils"
)

const (
	applicationNameConstant                 = "radon-defect-predictor"
	applicationVersionConstant              = "0.1.0"
	applicationShortDescriptionConstant     = "Defect prediction for Infrastructure-as-Code scripts"
	applicationLongDescriptionConstant      = "radon-defect-predictor trains, downloads, and applies models that flag failure-prone Ansible and TOSCA files."
	versionTemplateConstant                 = "{{.Name}} {{.Version}}\n"
	versionFlagNameConstant                 = "version"
	versionFlagShorthandConstant            = "v"
	versionFlagUsageConstant                = "Print the version and exit."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonMetricsFileConfigKeyConstant      = commonConfigurationKeyConstant + ".metrics_file"
	environmentPrefixConstant               = "RADON"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	environmentOverridesFieldConstant       = "environment_overrides"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	metricsWrittenMessageConstant           = "metrics written"
	metricsFileFieldConstant                = "metrics_file"
	defaultConfigurationSearchPathConstant  = "."
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores settings shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands grouped by tool family.
type ApplicationToolsConfiguration struct {
	Train   training.Configuration   `mapstructure:"train"`
	Predict prediction.Configuration `mapstructure:"predict"`
	Model   modelhub.Configuration   `mapstructure:"model"`
}

// Application wires the Cobra root command, configuration loader, structured logger, and metrics recorder.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	recorder               *instrumentation.Recorder
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	embeddedDocument, embeddedDocumentType := EmbeddedDefaultConfiguration()
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		utils.WithSearchPaths(defaultConfigurationSearchPathConstant),
		utils.WithDefaults(commonConfigurationDefaults()),
		utils.WithEmbeddedDocument(embeddedDocument, embeddedDocumentType),
	)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		recorder:               instrumentation.NewRecorder(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       applicationVersionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetVersionTemplate(versionTemplateConstant)
	cobraCommand.Flags().BoolP(versionFlagNameConstant, versionFlagShorthandConstant, false, versionFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	for _, buildSubcommand := range application.subcommandBuilders() {
		subcommand, buildError := buildSubcommand()
		if buildError == nil {
			cobraCommand.AddCommand(subcommand)
		}
	}

	application.rootCommand = cobraCommand

	return application
}

type subcommandBuilder func() (*cobra.Command, error)

func (application *Application) subcommandBuilders() []subcommandBuilder {
	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	trainBuilder := training.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() training.Configuration {
			return application.configuration.Tools.Train
		},
		ObserverProvider: func() training.Observer {
			return application.recorder
		},
	}

	predictBuilder := prediction.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() prediction.Configuration {
			return application.configuration.Tools.Predict
		},
		ObserverProvider: func() prediction.Observer {
			return application.recorder
		},
	}

	modelBuilder := modelhub.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() modelhub.Configuration {
			return application.configuration.Tools.Model
		},
	}

	metricsBuilder := iacmetrics.CommandBuilder{LoggerProvider: loggerProvider}

	return []subcommandBuilder{
		trainBuilder.Build,
		predictBuilder.Build,
		modelBuilder.Build,
		metricsBuilder.Build,
	}
}

// Execute runs the configured Cobra command hierarchy, persists metrics, and flushes the logger.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	metricsError := application.writeMetrics()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return errors.Join(executionError, metricsError)
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func commonConfigurationDefaults() map[string]any {
	return map[string]any{
		commonLogLevelConfigKeyConstant:    string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:   string(utils.LogFormatStructured),
		commonMetricsFileConfigKeyConstant: "",
	}
}

// LoggingSettings returns the logger settings described by the common section.
func (configuration ApplicationCommonConfiguration) LoggingSettings() utils.LoggingSettings {
	return utils.LoggingSettings{Level: utils.LogLevel(configuration.LogLevel), Format: utils.LogFormat(configuration.LogFormat)}
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.Load(application.configurationFilePath, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(application.configuration.Common.LoggingSettings())
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Strings(environmentOverridesFieldConstant, application.configurationMetadata.EnvironmentOverrides),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithExecutionSettings(
			command.Context(),
			utils.ExecutionSettings{
				ConfigurationFile: application.configurationMetadata.ConfigFileUsed,
				MetricsFile:       application.configuration.Common.MetricsFile,
			},
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

// writeMetrics persists the recorder using the settings resolved for this invocation.
// Nothing is written when the invocation never reached configuration loading.
func (application *Application) writeMetrics() error {
	executionSettings, settingsAvailable := application.commandContextAccessor.ExecutionSettings(application.rootCommand.Context())
	if !settingsAvailable {
		return nil
	}

	metricsFile := executionSettings.MetricsFile
	if writeError := application.recorder.WriteTextfile(metricsFile); writeError != nil {
		return writeError
	}
	if len(metricsFile) > 0 {
		application.logger.Debug(metricsWrittenMessageConstant, zap.String(metricsFileFieldConstant, metricsFile))
	}
	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
