package execshell

import "sync"

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports unexpected failures prior to receiving an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}

// CommandStatistics is an observer tallying command outcomes. Safe for concurrent use.
type CommandStatistics struct {
	mutex     sync.Mutex
	started   int
	succeeded int
	failed    int
}

// CommandStarted implements CommandEventObserver.
func (statistics *CommandStatistics) CommandStarted(ShellCommand) {
	statistics.mutex.Lock()
	defer statistics.mutex.Unlock()
	statistics.started++
}

// CommandCompleted implements CommandEventObserver.
func (statistics *CommandStatistics) CommandCompleted(_ ShellCommand, result ExecutionResult) {
	statistics.mutex.Lock()
	defer statistics.mutex.Unlock()
	if result.ExitCode == 0 {
		statistics.succeeded++
		return
	}
	statistics.failed++
}

// CommandExecutionFailed implements CommandEventObserver.
func (statistics *CommandStatistics) CommandExecutionFailed(ShellCommand, error) {
	statistics.mutex.Lock()
	defer statistics.mutex.Unlock()
	statistics.failed++
}

// Snapshot returns the started, succeeded and failed counts.
func (statistics *CommandStatistics) Snapshot() (started int, succeeded int, failed int) {
	statistics.mutex.Lock()
	defer statistics.mutex.Unlock()
	return statistics.started, statistics.succeeded, statistics.failed
}
