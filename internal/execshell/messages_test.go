package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandMessageFormatterRecognisesMiningCommands(t *testing.T) {
	formatter := CommandMessageFormatter{}

	testCases := []struct {
		name            string
		command         ShellCommand
		expectedStart   string
		expectedSuccess string
	}{
		{
			name:            "ListTrackedFiles",
			command:         ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"ls-files", "-z"}, WorkingDirectory: "/repo"}},
			expectedStart:   "Listing tracked files in /repo",
			expectedSuccess: "Listed tracked files in /repo",
		},
		{
			name:            "RemoteGetURL",
			command:         ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"remote", "get-url", "origin"}, WorkingDirectory: "/repo"}},
			expectedStart:   "Reading remote URL in /repo",
			expectedSuccess: "Read remote URL in /repo",
		},
		{
			name:            "UnknownSubcommandWithoutDirectory",
			command:         ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"status", "--porcelain"}}},
			expectedStart:   "Running git status --porcelain",
			expectedSuccess: "Completed git status --porcelain",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expectedStart, formatter.BuildStartedMessage(testCase.command))
			require.Equal(t, testCase.expectedSuccess, formatter.BuildSuccessMessage(testCase.command))
		})
	}
}

func TestCommandMessageFormatterFailureMessages(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"rev-parse", "--is-inside-work-tree"}}}

	require.Equal(t, "Could not confirm current directory is a Git repository (exit code 128: fatal)", formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 128, StandardError: "fatal\n"}))
	require.Equal(t, "Could not analyze current directory: boom", formatter.BuildExecutionFailureMessage(command, errors.New("boom")))
	require.Equal(t, "Could not analyze current directory: unknown error", formatter.BuildExecutionFailureMessage(command, nil))
}
