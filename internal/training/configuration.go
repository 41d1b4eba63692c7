package training

import (
	"strings"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/dataset"
	"github.com/radon-h2020/radon-defect-predictor/internal/evaluation"
)

const defaultSeedConstant = 42

// Configuration stores defaults for the train command.
type Configuration struct {
	LabelColumn     string `mapstructure:"label_column"`
	Folds           int    `mapstructure:"folds"`
	Seed            uint64 `mapstructure:"seed"`
	SelectionMetric string `mapstructure:"selection_metric"`
	ModelFormat     string `mapstructure:"model_format"`
	Parallelism     int    `mapstructure:"parallelism"`
	Trees           int    `mapstructure:"trees"`
}

// DefaultConfiguration supplies baseline values for training.
func DefaultConfiguration() Configuration {
	return Configuration{
		LabelColumn:     dataset.DefaultLabelColumn,
		Folds:           evaluation.DefaultFoldCount,
		Seed:            defaultSeedConstant,
		SelectionMetric: string(evaluation.DefaultMetric),
		ModelFormat:     string(artifact.FormatJSON),
		Trees:           classifiers.DefaultTreeCount,
	}
}

// Sanitize trims textual values and restores defaults for unset ones.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	sanitized.LabelColumn = strings.TrimSpace(configuration.LabelColumn)
	if len(sanitized.LabelColumn) == 0 {
		sanitized.LabelColumn = defaults.LabelColumn
	}
	if sanitized.Folds <= 0 {
		sanitized.Folds = defaults.Folds
	}
	sanitized.SelectionMetric = strings.TrimSpace(configuration.SelectionMetric)
	sanitized.ModelFormat = strings.TrimSpace(configuration.ModelFormat)
	if sanitized.Parallelism < 0 {
		sanitized.Parallelism = 0
	}
	if sanitized.Trees <= 0 {
		sanitized.Trees = defaults.Trees
	}
	return sanitized
}
