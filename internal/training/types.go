package training

import (
	"time"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/evaluation"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
)

// Options configures a training run.
type Options struct {
	Balancers       []preprocess.Balancer
	Normalizers     []preprocess.NormalizerKind
	Classifiers     []classifiers.Kind
	FoldCount       int
	Seed            uint64
	SelectionMetric evaluation.Metric
	Parallelism     int
	TreeCount       int
}

// Combination identifies one pipeline of the training grid.
type Combination struct {
	Balancer   preprocess.Balancer       `json:"balancer"`
	Normalizer preprocess.NormalizerKind `json:"normalizer"`
	Classifier classifiers.Kind          `json:"classifier"`
}

// CombinationResult holds the cross-validated scores of a combination.
type CombinationResult struct {
	Combination
	MeanScores evaluation.Scores   `json:"mean_scores"`
	FoldScores []evaluation.Scores `json:"fold_scores"`
}

// Report summarizes a training run.
type Report struct {
	SelectionMetric evaluation.Metric   `json:"selection_metric"`
	FoldCount       int                 `json:"folds"`
	Seed            uint64              `json:"seed"`
	RowCount        int                 `json:"rows"`
	FeatureNames    []string            `json:"features"`
	SkippedColumns  []string            `json:"skipped_columns,omitempty"`
	Best            CombinationResult   `json:"best"`
	Combinations    []CombinationResult `json:"combinations"`
	Duration        time.Duration       `json:"duration_ns"`
	CompletedAt     time.Time           `json:"completed_at"`
}

// Result is the outcome of Train.
type Result struct {
	Model  *artifact.Model
	Report Report
}

// Observer receives training progress notifications.
type Observer interface {
	CombinationEvaluated(result CombinationResult)
	TrainingCompleted(report Report)
}

type noopObserver struct{}

func (noopObserver) CombinationEvaluated(CombinationResult) {}

func (noopObserver) TrainingCompleted(Report) {}
