package utils

import "context"

const (
	executionSettingsContextKeyConstant = commandContextKey("executionSettings")
)

type commandContextKey string

// ExecutionSettings describes the resolved settings shared by every subcommand of one invocation.
type ExecutionSettings struct {
	ConfigurationFile string
	MetricsFile       string
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithExecutionSettings attaches the execution settings to the provided context.
func (accessor CommandContextAccessor) WithExecutionSettings(parentContext context.Context, settings ExecutionSettings) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, executionSettingsContextKeyConstant, settings)
}

// ExecutionSettings extracts the execution settings from the provided context.
func (accessor CommandContextAccessor) ExecutionSettings(executionContext context.Context) (ExecutionSettings, bool) {
	if executionContext == nil {
		return ExecutionSettings{}, false
	}
	settings, settingsAvailable := executionContext.Value(executionSettingsContextKeyConstant).(ExecutionSettings)
	return settings, settingsAvailable
}
