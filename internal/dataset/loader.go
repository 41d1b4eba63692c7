package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	csvExtensionConstant          = ".csv"
	zipExtensionConstant          = ".zip"
	openDatasetTemplateConstant   = "unable to open dataset %s: %w"
	readHeaderTemplateConstant    = "unable to read header: %w"
	readRowTemplateConstant       = "unable to read row %d: %w"
	zipMemberTemplateConstant     = "unable to open archive member %s: %w"
	unsupportedExtensionTemplate  = "unsupported dataset extension %q (expected .csv or .zip)"
	emptyHeaderMessageConstant    = "header row is empty"
	archiveWithoutCSVMessage      = "archive does not contain a csv file"
	macOSMetadataPrefixConstant   = "__MACOSX/"
	headerByteOrderMarkConstant   = "\ufeff"
	labelTrueValueOneConstant     = "1"
	labelTrueValueTrueConstant    = "true"
	labelTrueValueYesConstant     = "yes"
	labelFalseValueZeroConstant   = "0"
	labelFalseValueFalseConstant  = "false"
	labelFalseValueNoConstant     = "no"
	floatBitSizeConstant          = 64
	firstDataRowLineNumberOffset  = 2
	labelColumnIndexNotFoundValue = -1
)

// ErrEmptyHeader indicates the CSV input has no header row.
var ErrEmptyHeader = errors.New(emptyHeaderMessageConstant)

// ErrArchiveWithoutCSV indicates a zip archive without any csv member.
var ErrArchiveWithoutCSV = errors.New(archiveWithoutCSVMessage)

// LoadOptions controls how a dataset is decoded.
type LoadOptions struct {
	LabelColumn string
}

func (options LoadOptions) labelColumn() string {
	trimmedLabelColumn := strings.TrimSpace(options.LabelColumn)
	if len(trimmedLabelColumn) == 0 {
		return DefaultLabelColumn
	}
	return trimmedLabelColumn
}

// LoadFile reads a dataset from a .csv file or from the first .csv member (by name) of a .zip archive.
func LoadFile(datasetPath string, options LoadOptions) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(datasetPath)) {
	case csvExtensionConstant:
		datasetFile, openError := os.Open(datasetPath)
		if openError != nil {
			return nil, fmt.Errorf(openDatasetTemplateConstant, datasetPath, openError)
		}
		defer datasetFile.Close()
		return LoadCSV(datasetFile, options)
	case zipExtensionConstant:
		return loadArchive(datasetPath, options)
	default:
		return nil, fmt.Errorf(unsupportedExtensionTemplate, filepath.Ext(datasetPath))
	}
}

func loadArchive(archivePath string, options LoadOptions) (*Dataset, error) {
	archiveReader, openError := zip.OpenReader(archivePath)
	if openError != nil {
		return nil, fmt.Errorf(openDatasetTemplateConstant, archivePath, openError)
	}
	defer archiveReader.Close()

	var candidates []*zip.File
	for _, archiveMember := range archiveReader.File {
		if archiveMember.FileInfo().IsDir() || strings.HasPrefix(archiveMember.Name, macOSMetadataPrefixConstant) {
			continue
		}
		if strings.EqualFold(filepath.Ext(archiveMember.Name), csvExtensionConstant) {
			candidates = append(candidates, archiveMember)
		}
	}
	if len(candidates) == 0 {
		return nil, InvalidDatasetError{Cause: ErrArchiveWithoutCSV}
	}
	sort.Slice(candidates, func(left int, right int) bool {
		return candidates[left].Name < candidates[right].Name
	})

	memberReader, memberError := candidates[0].Open()
	if memberError != nil {
		return nil, fmt.Errorf(zipMemberTemplateConstant, candidates[0].Name, memberError)
	}
	defer memberReader.Close()

	return LoadCSV(memberReader, options)
}

// LoadCSV decodes a header-prefixed CSV stream. Every column other than the label column whose
// non-empty cells all parse as numbers becomes a feature; other columns are skipped.
func LoadCSV(reader io.Reader, options LoadOptions) (*Dataset, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, headerError := csvReader.Read()
	if errors.Is(headerError, io.EOF) {
		return nil, InvalidDatasetError{Cause: ErrEmptyHeader}
	}
	if headerError != nil {
		return nil, fmt.Errorf(readHeaderTemplateConstant, headerError)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], headerByteOrderMarkConstant)
	}

	labelColumn := options.labelColumn()
	labelIndex := labelColumnIndexNotFoundValue
	for columnIndex, columnName := range header {
		header[columnIndex] = strings.TrimSpace(columnName)
		if header[columnIndex] == labelColumn {
			labelIndex = columnIndex
		}
	}
	if labelIndex == labelColumnIndexNotFoundValue {
		return nil, InvalidDatasetError{Reason: fmt.Sprintf(missingLabelColumnTemplate, labelColumn)}
	}

	var records [][]string
	var labels []bool
	for rowNumber := 0; ; rowNumber++ {
		record, readError := csvReader.Read()
		if errors.Is(readError, io.EOF) {
			break
		}
		if readError != nil {
			return nil, fmt.Errorf(readRowTemplateConstant, rowNumber+firstDataRowLineNumberOffset, readError)
		}
		if isBlankRecord(record) {
			continue
		}
		if len(record) != len(header) {
			return nil, InvalidDatasetError{Reason: fmt.Sprintf(rowWidthMismatchTemplateConstant, rowNumber+firstDataRowLineNumberOffset, len(header), len(record))}
		}

		label, labelError := parseLabel(record[labelIndex])
		if labelError != nil {
			return nil, InvalidDatasetError{Reason: fmt.Sprintf(invalidLabelTemplateConstant, rowNumber+firstDataRowLineNumberOffset, record[labelIndex])}
		}
		records = append(records, record)
		labels = append(labels, label)
	}

	featureIndices, featureNames, skippedColumns := selectNumericColumns(header, records, labelIndex)
	loaded := &Dataset{
		FeatureNames:   featureNames,
		Rows:           make([][]float64, len(records)),
		Labels:         labels,
		SkippedColumns: skippedColumns,
	}
	for rowIndex, record := range records {
		row := make([]float64, len(featureIndices))
		for featurePosition, columnIndex := range featureIndices {
			row[featurePosition] = parseNumericCell(record[columnIndex])
		}
		loaded.Rows[rowIndex] = row
	}

	if validationError := loaded.Validate(); validationError != nil {
		return nil, validationError
	}
	return loaded, nil
}

func selectNumericColumns(header []string, records [][]string, labelIndex int) ([]int, []string, []string) {
	var featureIndices []int
	var featureNames []string
	var skippedColumns []string
	for columnIndex, columnName := range header {
		if columnIndex == labelIndex {
			continue
		}
		if columnIsNumeric(records, columnIndex) {
			featureIndices = append(featureIndices, columnIndex)
			featureNames = append(featureNames, columnName)
			continue
		}
		skippedColumns = append(skippedColumns, columnName)
	}
	return featureIndices, featureNames, skippedColumns
}

func columnIsNumeric(records [][]string, columnIndex int) bool {
	for _, record := range records {
		cell := strings.TrimSpace(record[columnIndex])
		if len(cell) == 0 {
			continue
		}
		if _, finite := parseFiniteCell(cell); !finite {
			return false
		}
	}
	return true
}

func parseNumericCell(cell string) float64 {
	value, finite := parseFiniteCell(strings.TrimSpace(cell))
	if !finite {
		return 0
	}
	return value
}

// parseFiniteCell treats NaN and infinities as non-numeric so such columns are skipped.
func parseFiniteCell(cell string) (float64, bool) {
	value, parseError := strconv.ParseFloat(cell, floatBitSizeConstant)
	if parseError != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func parseLabel(rawLabel string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(rawLabel)) {
	case labelTrueValueOneConstant, labelTrueValueTrueConstant, labelTrueValueYesConstant:
		return true, nil
	case labelFalseValueZeroConstant, labelFalseValueFalseConstant, labelFalseValueNoConstant:
		return false, nil
	}
	numericLabel, finite := parseFiniteCell(strings.TrimSpace(rawLabel))
	switch {
	case finite && numericLabel == 1:
		return true, nil
	case finite && numericLabel == 0:
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if len(strings.TrimSpace(cell)) > 0 {
			return false
		}
	}
	return true
}
