package dataset_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/radon-h2020/radon-defect-predictor/internal/dataset"
)

const trainingCSVFixture = `filepath,lines_code,num_tasks,failure_prone
roles/web/tasks/main.yml,40,5,1
roles/db/tasks/main.yml,12,,0
site.yml,8,2,false
handlers/main.yml,22,3,TRUE
`

func TestLoadCSV(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		content                string
		options                dataset.LoadOptions
		expectedFeatures       []string
		expectedSkipped        []string
		expectedRows           [][]float64
		expectedLabels         []bool
		expectedErrorSubstring string
	}{
		{
			name:             "default_label_column",
			content:          trainingCSVFixture,
			expectedFeatures: []string{"lines_code", "num_tasks"},
			expectedSkipped:  []string{"filepath"},
			expectedRows:     [][]float64{{40, 5}, {12, 0}, {8, 2}, {22, 3}},
			expectedLabels:   []bool{true, false, false, true},
		},
		{
			name:             "custom_label_column_and_bom",
			content:          "\ufeffdefective,a\nyes,1.5\nno,2.5\n\n",
			options:          dataset.LoadOptions{LabelColumn: "defective"},
			expectedFeatures: []string{"a"},
			expectedRows:     [][]float64{{1.5}, {2.5}},
			expectedLabels:   []bool{true, false},
		},
		{
			name:                   "missing_label_column",
			content:                "a,b\n1,2\n",
			expectedErrorSubstring: `label column "failure_prone" not found`,
		},
		{
			name:                   "single_class",
			content:                "a,failure_prone\n1,1\n2,1\n",
			expectedErrorSubstring: "both failure-prone and clean rows are required",
		},
		{
			name:                   "invalid_label",
			content:                "a,failure_prone\n1,maybe\n",
			expectedErrorSubstring: `row 2: invalid label "maybe"`,
		},
		{
			name:                   "label_outside_binary_range",
			content:                "a,failure_prone\n1,2\n2,0\n",
			expectedErrorSubstring: `row 2: invalid label "2"`,
		},
		{
			name:                   "negative_label",
			content:                "a,failure_prone\n1,1\n2,-1\n",
			expectedErrorSubstring: `row 3: invalid label "-1"`,
		},
		{
			name:             "float_formatted_labels",
			content:          "a,failure_prone\n1,1.0\n2,0.0\n",
			expectedFeatures: []string{"a"},
			expectedRows:     [][]float64{{1}, {2}},
			expectedLabels:   []bool{true, false},
		},
		{
			name:             "nan_column_skipped",
			content:          "a,b,failure_prone\n1,NaN,1\n2,3,0\n",
			expectedFeatures: []string{"a"},
			expectedSkipped:  []string{"b"},
			expectedRows:     [][]float64{{1}, {2}},
			expectedLabels:   []bool{true, false},
		},
		{
			name:             "inf_column_skipped",
			content:          "a,b,failure_prone\n1,4,1\n2,-Inf,0\n",
			expectedFeatures: []string{"a"},
			expectedSkipped:  []string{"b"},
			expectedRows:     [][]float64{{1}, {2}},
			expectedLabels:   []bool{true, false},
		},
		{
			name:             "infinity_column_skipped",
			content:          "a,b,failure_prone\n1,Infinity,1\n2,5,0\n",
			expectedFeatures: []string{"a"},
			expectedSkipped:  []string{"b"},
			expectedRows:     [][]float64{{1}, {2}},
			expectedLabels:   []bool{true, false},
		},
		{
			name:                   "only_non_finite_features",
			content:                "a,failure_prone\nNaN,1\ninf,0\n",
			expectedErrorSubstring: "no numeric feature columns",
		},
		{
			name:                   "no_numeric_features",
			content:                "name,failure_prone\nx,1\ny,0\n",
			expectedErrorSubstring: "no numeric feature columns",
		},
		{
			name:                   "empty_input",
			content:                "",
			expectedErrorSubstring: "header row is empty",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			loaded, loadError := dataset.LoadCSV(strings.NewReader(testCase.content), testCase.options)
			if len(testCase.expectedErrorSubstring) > 0 {
				require.Error(testInstance, loadError)
				require.Contains(testInstance, loadError.Error(), testCase.expectedErrorSubstring)
				return
			}
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedFeatures, loaded.FeatureNames)
			require.Equal(testInstance, testCase.expectedSkipped, loaded.SkippedColumns)
			require.Equal(testInstance, testCase.expectedRows, loaded.Rows)
			require.Equal(testInstance, testCase.expectedLabels, loaded.Labels)
		})
	}
}

func TestLoadFileReadsZipArchives(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	archivePath := filepath.Join(temporaryDirectory, "test_data.zip")

	archiveFile, createError := os.Create(archivePath)
	require.NoError(testInstance, createError)
	archiveWriter := zip.NewWriter(archiveFile)
	for memberName, memberContent := range map[string]string{
		"README.txt":        "not a dataset",
		"b_second.csv":      "a,failure_prone\n9,1\n8,0\n",
		"a_first.csv":       trainingCSVFixture,
		"__MACOSX/._a.csv":  "garbage",
		"nested/z_last.csv": "a,failure_prone\n1,1\n0,0\n",
	} {
		memberWriter, memberError := archiveWriter.Create(memberName)
		require.NoError(testInstance, memberError)
		_, writeError := memberWriter.Write([]byte(memberContent))
		require.NoError(testInstance, writeError)
	}
	require.NoError(testInstance, archiveWriter.Close())
	require.NoError(testInstance, archiveFile.Close())

	loaded, loadError := dataset.LoadFile(archivePath, dataset.LoadOptions{})
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{"lines_code", "num_tasks"}, loaded.FeatureNames)
	require.Equal(testInstance, 4, loaded.Len())
}

func TestLoadFileRejectsUnknownExtensions(testInstance *testing.T) {
	_, loadError := dataset.LoadFile(filepath.Join(testInstance.TempDir(), "data.parquet"), dataset.LoadOptions{})
	require.Error(testInstance, loadError)
	require.Contains(testInstance, loadError.Error(), "unsupported dataset extension")
}

func TestLoadFileRejectsArchiveWithoutCSV(testInstance *testing.T) {
	archivePath := filepath.Join(testInstance.TempDir(), "empty.zip")
	archiveFile, createError := os.Create(archivePath)
	require.NoError(testInstance, createError)
	archiveWriter := zip.NewWriter(archiveFile)
	memberWriter, memberError := archiveWriter.Create("notes.md")
	require.NoError(testInstance, memberError)
	_, writeError := memberWriter.Write([]byte("nothing"))
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, archiveWriter.Close())
	require.NoError(testInstance, archiveFile.Close())

	_, loadError := dataset.LoadFile(archivePath, dataset.LoadOptions{})
	require.ErrorIs(testInstance, loadError, dataset.ErrArchiveWithoutCSV)
}
