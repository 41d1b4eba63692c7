package modelhub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/execshell"
	"github.com/radon-h2020/radon-defect-predictor/internal/gitrepo"
	"github.com/radon-h2020/radon-defect-predictor/internal/hosting"
	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
	"github.com/radon-h2020/radon-defect-predictor/internal/iacmetrics"
	"github.com/radon-h2020/radon-defect-predictor/internal/scoring"
	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
	pathutils "github.com/radon-h2020/radon-defect-predictor/internal/utils/path"
)

const (
	groupUseConstant                      = "model"
	groupShortDescriptionConstant         = "Download a pre-trained model matching a repository"
	downloadUseConstant                   = "download"
	downloadShortDescriptionConstant      = "Score a cloned repository and download the best matching pre-trained model"
	scoreUseConstant                      = "score"
	scoreShortDescriptionConstant         = "Score a cloned repository and print the scores"
	commandExecutionErrorTemplateConstant = "model %s failed: %w"
	unexpectedArgumentsTemplateConstant   = "model %s does not accept positional arguments"
	requiredFlagTemplateConstant          = "--%s is required"
	downloadCompletedTemplateConstant     = "Model stored in %s (%d features, %s %s)\n"
	flagPathToRepositoryNameConstant      = "path-to-repository"
	flagPathToRepositoryDescription       = "The path to the cloned repository"
	flagHostNameConstant                  = "host"
	flagHostDescriptionConstant           = "Whether the repository is hosted on GitHub or GitLab"
	flagTokenNameConstant                 = "token"
	flagTokenShorthandConstant            = "t"
	flagTokenDescriptionConstant          = "The access token for the hosting API"
	flagRepositoryNameConstant            = "repository"
	flagRepositoryShorthandConstant       = "r"
	flagRepositoryDescriptionConstant     = "The repository full name or id (e.g., radon-h2020/radon-defect-predictor); inferred from origin when omitted"
	flagLanguageNameConstant              = "language"
	flagLanguageShorthandConstant         = "l"
	flagLanguageDescriptionConstant       = "The language of the infrastructure code"
	flagDestinationNameConstant           = "destination"
	flagDestinationShorthandConstant      = "d"
	flagDestinationDescriptionConstant    = "Destination folder to save the model"
	downloadingModelMessageConstant       = "Downloading model"
	logFieldDestinationConstant           = "destination"
	gitCommandsSummaryMessageConstant     = "Git commands executed"
	logFieldGitStartedConstant            = "git_started"
	logFieldGitSucceededConstant          = "git_succeeded"
	logFieldGitFailedConstant             = "git_failed"
	jsonIndentConstant                    = "  "
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current model configuration.
type ConfigurationProvider func() Configuration

// TokenResolver locates hosting access tokens.
type TokenResolver interface {
	Resolve(ctx context.Context, request hosting.TokenRequest) (string, error)
}

// TrackerFactory builds the issue tracker for a host.
type TrackerFactory func(logger *zap.Logger, host hosting.Host, options hosting.TrackerOptions) (hosting.IssueTracker, error)

// CommandBuilder assembles the model command group.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GitExecutor           gitrepo.GitExecutor
	TrackerFactory        TrackerFactory
	TokenResolver         TokenResolver
	Clock                 func() time.Time
}

type commandOptions struct {
	repositoryPath string
	host           hosting.Host
	token          string
	repository     string
	language       iacmetrics.Language
	destination    string
}

// Build constructs the model command with its download and score subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	groupCommand := &cobra.Command{
		Use:   groupUseConstant,
		Short: groupShortDescriptionConstant,
	}

	groupCommand.PersistentFlags().String(flagPathToRepositoryNameConstant, "", flagPathToRepositoryDescription)
	groupCommand.PersistentFlags().String(flagHostNameConstant, string(hosting.HostGitHub), flags.FormatChoiceUsage(string(hosting.HostGitHub), hosting.HostChoices, flagHostDescriptionConstant))
	groupCommand.PersistentFlags().StringP(flagTokenNameConstant, flagTokenShorthandConstant, "", flagTokenDescriptionConstant)
	groupCommand.PersistentFlags().StringP(flagRepositoryNameConstant, flagRepositoryShorthandConstant, "", flagRepositoryDescriptionConstant)
	groupCommand.PersistentFlags().StringP(flagLanguageNameConstant, flagLanguageShorthandConstant, string(iacmetrics.LanguageAnsible), flags.FormatChoiceUsage(string(iacmetrics.LanguageAnsible), iacmetrics.LanguageChoices(), flagLanguageDescriptionConstant))

	downloadCommand := &cobra.Command{
		Use:   downloadUseConstant,
		Short: downloadShortDescriptionConstant,
		RunE:  builder.runDownload,
	}
	downloadCommand.Flags().StringP(flagDestinationNameConstant, flagDestinationShorthandConstant, "", flagDestinationDescriptionConstant)

	scoreCommand := &cobra.Command{
		Use:   scoreUseConstant,
		Short: scoreShortDescriptionConstant,
		RunE:  builder.runScore,
	}

	groupCommand.AddCommand(downloadCommand, scoreCommand)
	return groupCommand, nil
}

func (builder *CommandBuilder) runScore(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf(unexpectedArgumentsTemplateConstant, scoreUseConstant)
	}
	options, optionsError := builder.parseOptions(command, false)
	if optionsError != nil {
		return optionsError
	}

	scores, scoreError := builder.scoreRepository(command.Context(), options)
	if scoreError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, scoreUseConstant, scoreError)
	}

	encodedScores, encodeError := json.MarshalIndent(scores, "", jsonIndentConstant)
	if encodeError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, scoreUseConstant, encodeError)
	}
	fmt.Fprintln(command.OutOrStdout(), string(encodedScores))
	return nil
}

func (builder *CommandBuilder) runDownload(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf(unexpectedArgumentsTemplateConstant, downloadUseConstant)
	}
	options, optionsError := builder.parseOptions(command, true)
	if optionsError != nil {
		return optionsError
	}

	scores, scoreError := builder.scoreRepository(command.Context(), options)
	if scoreError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, downloadUseConstant, scoreError)
	}

	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()
	logger.Info(downloadingModelMessageConstant, zap.String(logFieldDestinationConstant, options.destination))

	client := NewClient(logger, Options{ServiceURL: configuration.ServiceURL, HTTP: httpOptions(configuration)})
	model, downloadError := client.DownloadPreTrained(command.Context(), NewPayload(scores))
	if downloadError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, downloadUseConstant, downloadError)
	}
	manifest, storeError := StorePreTrained(options.destination, model, builder.now())
	if storeError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, downloadUseConstant, storeError)
	}

	fmt.Fprintf(command.OutOrStdout(), downloadCompletedTemplateConstant, options.destination, manifest.FeatureCount, manifest.DigestAlgorithm, manifest.Digest)
	return nil
}

func (builder *CommandBuilder) scoreRepository(ctx context.Context, options commandOptions) (scoring.Scores, error) {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()

	token, tokenError := builder.resolveTokenResolver().Resolve(ctx, hosting.TokenRequest{
		Host:            options.host,
		ExplicitToken:   options.token,
		TokenSource:     configuration.TokenSource,
		EnvironmentFile: configuration.EnvironmentFile,
	})
	if tokenError != nil {
		return scoring.Scores{}, tokenError
	}

	gitStatistics := &execshell.CommandStatistics{}
	executor := builder.GitExecutor
	if executor == nil {
		shellExecutor, executorError := execshell.NewShellExecutorWithObserver(logger, execshell.NewOSCommandRunner(), gitStatistics)
		if executorError != nil {
			return scoring.Scores{}, executorError
		}
		executor = shellExecutor
	}
	repositoryManager, managerError := gitrepo.NewRepositoryManager(executor)
	if managerError != nil {
		return scoring.Scores{}, managerError
	}

	trackerFactory := builder.TrackerFactory
	if trackerFactory == nil {
		trackerFactory = hosting.NewIssueTracker
	}
	tracker, trackerError := trackerFactory(logger, options.host, hosting.TrackerOptions{
		Token:         token,
		GitHubBaseURL: configuration.GitHubBaseURL,
		GitLabBaseURL: configuration.GitLabBaseURL,
		HTTP:          httpOptions(configuration),
	})
	if trackerError != nil {
		return scoring.Scores{}, trackerError
	}

	scorer, scorerError := scoring.NewScorer(logger, repositoryManager, tracker)
	if scorerError != nil {
		return scoring.Scores{}, scorerError
	}
	scorer.WithClock(builder.Clock)

	scores, scoreError := scorer.Score(ctx, scoring.Request{
		RepositoryPath: options.repositoryPath,
		Repository:     options.repository,
		Language:       options.language,
	})

	startedCount, succeededCount, failedCount := gitStatistics.Snapshot()
	if startedCount > 0 {
		logger.Debug(gitCommandsSummaryMessageConstant,
			zap.Int(logFieldGitStartedConstant, startedCount),
			zap.Int(logFieldGitSucceededConstant, succeededCount),
			zap.Int(logFieldGitFailedConstant, failedCount),
		)
	}
	return scores, scoreError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, requireDestination bool) (commandOptions, error) {
	validator := pathutils.NewPathValidator()

	repositoryPathValue, _ := command.Flags().GetString(flagPathToRepositoryNameConstant)
	if len(strings.TrimSpace(repositoryPathValue)) == 0 {
		return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagPathToRepositoryNameConstant)
	}
	repositoryPath, repositoryPathError := validator.ExistingDirectory(repositoryPathValue)
	if repositoryPathError != nil {
		return commandOptions{}, repositoryPathError
	}

	hostValue, _ := command.Flags().GetString(flagHostNameConstant)
	host, hostError := hosting.ParseHost(hostValue)
	if hostError != nil {
		return commandOptions{}, hostError
	}

	languageValue, _ := command.Flags().GetString(flagLanguageNameConstant)
	language, languageError := iacmetrics.ParseLanguage(languageValue)
	if languageError != nil {
		return commandOptions{}, languageError
	}

	tokenValue, _ := command.Flags().GetString(flagTokenNameConstant)
	repositoryValue, _ := command.Flags().GetString(flagRepositoryNameConstant)

	options := commandOptions{
		repositoryPath: repositoryPath,
		host:           host,
		token:          strings.TrimSpace(tokenValue),
		repository:     strings.TrimSpace(repositoryValue),
		language:       language,
	}

	if requireDestination {
		destinationValue, _ := command.Flags().GetString(flagDestinationNameConstant)
		if len(strings.TrimSpace(destinationValue)) == 0 {
			return commandOptions{}, fmt.Errorf(requiredFlagTemplateConstant, flagDestinationNameConstant)
		}
		destination, destinationError := validator.ExistingDirectory(destinationValue)
		if destinationError != nil {
			return commandOptions{}, destinationError
		}
		options.destination = destination
	}
	return options, nil
}

func (builder *CommandBuilder) resolveTokenResolver() TokenResolver {
	if builder.TokenResolver != nil {
		return builder.TokenResolver
	}
	return hosting.NewTokenResolver(nil, nil, nil)
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

func (builder *CommandBuilder) now() time.Time {
	if builder.Clock == nil {
		return time.Now()
	}
	return builder.Clock()
}

func httpOptions(configuration Configuration) httpclient.Options {
	return httpclient.Options{
		RetryMax: configuration.RetryMax,
		Timeout:  time.Duration(configuration.TimeoutSeconds) * time.Second,
	}
}
