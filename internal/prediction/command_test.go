package prediction_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/prediction"
)

func TestPredictCommand(testInstance *testing.T) {
	modelDirectory := storeSizeModel(testInstance)
	scriptPath := writeScript(testInstance, smallPlaybookConstant)
	analyzedAt := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name                  string
		configuration         prediction.Configuration
		arguments             func(destination string) []string
		expectedReportFile    string
		expectedErrorFragment string
	}{
		{
			name: "default_report_file",
			arguments: func(destination string) []string {
				return []string{"--path-to-model", modelDirectory, "--path-to-file", scriptPath, "-l", "ansible", "-d", destination}
			},
			expectedReportFile: prediction.DefaultReportFileName,
		},
		{
			name:          "configured_report_file",
			configuration: prediction.Configuration{ReportFileName: "verdicts.jsonl"},
			arguments: func(destination string) []string {
				return []string{"--path-to-model", modelDirectory, "--path-to-file", scriptPath, "--destination", destination}
			},
			expectedReportFile: "verdicts.jsonl",
		},
		{
			name: "missing_file",
			arguments: func(destination string) []string {
				return []string{"--path-to-model", modelDirectory, "--path-to-file", filepath.Join(destination, "absent.yml"), "-d", destination}
			},
			expectedErrorFragment: "insert a valid path",
		},
		{
			name: "invalid_language",
			arguments: func(destination string) []string {
				return []string{"--path-to-model", modelDirectory, "--path-to-file", scriptPath, "-l", "chef", "-d", destination}
			},
			expectedErrorFragment: "chef is not a valid argument",
		},
		{
			name: "missing_destination",
			arguments: func(string) []string {
				return []string{"--path-to-model", modelDirectory, "--path-to-file", scriptPath}
			},
			expectedErrorFragment: "--destination is required",
		},
		{
			name: "tosca_language_mismatch",
			arguments: func(destination string) []string {
				return []string{"--path-to-model", modelDirectory, "--path-to-file", scriptPath, "-l", "tosca", "-d", destination}
			},
			expectedErrorFragment: "prediction failed",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			destination := testInstance.TempDir()
			builder := prediction.CommandBuilder{
				LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
				ConfigurationProvider: func() prediction.Configuration { return testCase.configuration },
				Clock:                 func() time.Time { return analyzedAt },
			}
			command, buildError := builder.Build()
			require.NoError(testInstance, buildError)

			outputBuffer := &bytes.Buffer{}
			command.SetOut(outputBuffer)
			command.SetErr(&bytes.Buffer{})
			command.SetContext(context.Background())
			command.SetArgs(testCase.arguments(destination))

			executionError := command.Execute()
			if len(testCase.expectedErrorFragment) > 0 {
				require.ErrorContains(testInstance, executionError, testCase.expectedErrorFragment)
				return
			}
			require.NoError(testInstance, executionError)

			var printed prediction.Report
			require.NoError(testInstance, json.Unmarshal(outputBuffer.Bytes(), &printed))
			require.Equal(testInstance, scriptPath, printed.File)
			require.False(testInstance, printed.FailureProne)
			require.Equal(testInstance, "2026-10-19", printed.AnalyzedAt)

			reportContent, readError := os.ReadFile(filepath.Join(destination, testCase.expectedReportFile))
			require.NoError(testInstance, readError)
			require.Equal(testInstance, strings.TrimSpace(outputBuffer.String()), strings.TrimSpace(string(reportContent)))
		})
	}
}
