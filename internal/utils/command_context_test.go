package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandContextAccessorExecutionSettings(t *testing.T) {
	accessor := NewCommandContextAccessor()

	_, availableBefore := accessor.ExecutionSettings(context.Background())
	require.False(t, availableBefore)

	expectedSettings := ExecutionSettings{ConfigurationFile: "config.yaml", MetricsFile: "/tmp/radon.prom"}
	executionContext := accessor.WithExecutionSettings(context.Background(), expectedSettings)

	settings, available := accessor.ExecutionSettings(executionContext)
	require.True(t, available)
	require.Equal(t, expectedSettings, settings)
}

func TestCommandContextAccessorNilParent(t *testing.T) {
	accessor := NewCommandContextAccessor()

	executionContext := accessor.WithExecutionSettings(nil, ExecutionSettings{MetricsFile: "metrics.prom"})
	settings, available := accessor.ExecutionSettings(executionContext)
	require.True(t, available)
	require.Equal(t, "metrics.prom", settings.MetricsFile)
}
