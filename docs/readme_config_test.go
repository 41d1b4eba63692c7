package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/radon-h2020/radon-defect-predictor/cmd/cli"
	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/evaluation"
)

const (
	readmeFileNameConstant           = "README.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	parentDirectoryReferenceConstant = ".."
	commandReferenceTemplate         = "radon-defect-predictor "
	missingHeaderMessageConstant     = "README example missing config header marker"
	missingStartFenceMessageConstant = "README example missing yaml fence start"
	missingEndFenceMessageConstant   = "README example missing yaml fence end"
)

var documentedCommands = []string{"train", "predict", "model download", "model score", "metrics"}

func readReadme(testInstance *testing.T) string {
	testInstance.Helper()

	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	contentBytes, readError := os.ReadFile(filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant))
	require.NoError(testInstance, readError)
	return string(contentBytes)
}

func extractConfigurationSnippet(testInstance *testing.T, contentText string) string {
	testInstance.Helper()

	headerIndex := strings.Index(contentText, configHeaderMarkerConstant)
	require.NotEqual(testInstance, -1, headerIndex, missingHeaderMessageConstant)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	fenceEndRelativeIndex := strings.Index(contentText[headerIndex:], yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)

	return strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : headerIndex+fenceEndRelativeIndex])
}

func TestReadmeConfigurationDecodes(testInstance *testing.T) {
	snippetContent := extractConfigurationSnippet(testInstance, readReadme(testInstance))

	rawConfiguration := map[string]any{}
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippetContent), &rawConfiguration))

	var applicationConfiguration cli.ApplicationConfiguration
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &applicationConfiguration,
	})
	require.NoError(testInstance, decoderError)
	require.NoError(testInstance, decoder.Decode(rawConfiguration))

	trainConfiguration := applicationConfiguration.Tools.Train.Sanitize()
	_, metricError := evaluation.ParseMetric(trainConfiguration.SelectionMetric)
	require.NoError(testInstance, metricError)
	_, formatError := artifact.ParseFormat(trainConfiguration.ModelFormat)
	require.NoError(testInstance, formatError)

	require.Equal(testInstance, "prediction_report.json", applicationConfiguration.Tools.Predict.Sanitize().ReportFileName)
	require.NotEmpty(testInstance, applicationConfiguration.Common.MetricsFile)
}

func TestReadmeDocumentsEveryCommand(testInstance *testing.T) {
	contentText := readReadme(testInstance)

	for _, commandName := range documentedCommands {
		testInstance.Run(strings.ReplaceAll(commandName, " ", "_"), func(testInstance *testing.T) {
			require.Contains(testInstance, contentText, commandReferenceTemplate+commandName)
		})
	}
}
