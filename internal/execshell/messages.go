package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	defaultWorkingDirectoryLabelConstant    = "current directory"
)

const (
	gitLogSubcommandNameConstant          = "log"
	gitLSFilesSubcommandNameConstant      = "ls-files"
	gitRemoteSubcommandNameConstant       = "remote"
	gitRevParseSubcommandNameConstant     = "rev-parse"
	gitRemoteGetURLSubcommandNameConstant = "get-url"
)

// describedStages holds the four lifecycle templates of a recognised git subcommand.
// Every template receives the working directory as its first argument.
type describedStages struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var gitSubcommandStages = map[string]describedStages{
	gitLogSubcommandNameConstant: {
		start:            "Reading commit history in %s",
		success:          "Read commit history in %s",
		failure:          "Failed to read commit history in %s (exit code %d%s)",
		executionFailure: "Unable to read commit history in %s: %s",
	},
	gitLSFilesSubcommandNameConstant: {
		start:            "Listing tracked files in %s",
		success:          "Listed tracked files in %s",
		failure:          "Failed to list tracked files in %s (exit code %d%s)",
		executionFailure: "Unable to list tracked files in %s: %s",
	},
	gitRevParseSubcommandNameConstant: {
		start:            "Analyzing repository at %s",
		success:          "Analyzed repository at %s",
		failure:          "Could not confirm %s is a Git repository (exit code %d%s)",
		executionFailure: "Could not analyze %s: %s",
	},
	gitRemoteSubcommandNameConstant + commandArgumentsJoinSeparatorConstant + gitRemoteGetURLSubcommandNameConstant: {
		start:            "Reading remote URL in %s",
		success:          "Read remote URL in %s",
		failure:          "Failed to read remote URL in %s (exit code %d%s)",
		executionFailure: "Unable to read remote URL in %s: %s",
	},
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	stages, recognised := formatter.lookupGitStages(command)
	if !recognised {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(stages.start, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(stages.success, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(stages.failure, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(stages.executionFailure, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) lookupGitStages(command ShellCommand) (describedStages, bool) {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return describedStages{}, false
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	if len(command.Details.Arguments) > 1 {
		compoundSubcommand := subcommand + commandArgumentsJoinSeparatorConstant + strings.TrimSpace(command.Details.Arguments[1])
		if stages, found := gitSubcommandStages[compoundSubcommand]; found {
			return stages, true
		}
	}

	stages, found := gitSubcommandStages[subcommand]
	return stages, found
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	commandParts = append(commandParts, command.Details.Arguments...)
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
