// Package prediction applies a stored defect model to a single infrastructure-code file and
// appends the verdict to a JSON Lines report.
package prediction
