// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and observer hooks;
// OSCommandRunner is the default os/exec backed runner. The defect predictor
// uses it to mine git history and tracked files from cloned repositories.
package execshell
