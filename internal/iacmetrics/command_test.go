package iacmetrics_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/iacmetrics"
)

func TestMetricsCommand(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		arguments             []string
		expectedMetric        string
		expectedValue         float64
		expectedErrorFragment string
	}{
		{
			name:           "ansible_playbook",
			arguments:      []string{"--path-to-file", filepath.Join("testdata", "playbook.yml"), "-l", "ansible"},
			expectedMetric: "num_tasks",
			expectedValue:  7,
		},
		{
			name:           "tosca_template",
			arguments:      []string{"--path-to-file", filepath.Join("testdata", "service_template.yaml"), "--language", "tosca"},
			expectedMetric: "num_node_templates",
			expectedValue:  2,
		},
		{
			name:                  "invalid_language",
			arguments:             []string{"--path-to-file", filepath.Join("testdata", "playbook.yml"), "-l", "puppet"},
			expectedErrorFragment: "puppet is not a valid argument",
		},
		{
			name:                  "missing_file",
			arguments:             []string{"--path-to-file", filepath.Join("testdata", "absent.yml"), "-l", "ansible"},
			expectedErrorFragment: "insert a valid path",
		},
		{
			name:                  "wrong_shape",
			arguments:             []string{"--path-to-file", filepath.Join("testdata", "service_template.yaml"), "-l", "ansible"},
			expectedErrorFragment: "metric extraction failed",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			builder := iacmetrics.CommandBuilder{LoggerProvider: func() *zap.Logger { return zap.NewNop() }}
			command, buildError := builder.Build()
			require.NoError(testInstance, buildError)

			outputBuffer := &bytes.Buffer{}
			command.SetOut(outputBuffer)
			command.SetErr(&bytes.Buffer{})
			command.SetContext(context.Background())
			command.SetArgs(testCase.arguments)

			executionError := command.Execute()
			if len(testCase.expectedErrorFragment) > 0 {
				require.ErrorContains(testInstance, executionError, testCase.expectedErrorFragment)
				return
			}
			require.NoError(testInstance, executionError)

			var decoded map[string]float64
			require.NoError(testInstance, json.Unmarshal(outputBuffer.Bytes(), &decoded))
			require.Equal(testInstance, testCase.expectedValue, decoded[testCase.expectedMetric])
		})
	}
}
