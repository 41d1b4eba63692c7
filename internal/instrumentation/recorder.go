// Package instrumentation counts training and prediction activity in a Prometheus registry and
// exports it in the textfile collector format.
package instrumentation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radon-h2020/radon-defect-predictor/internal/prediction"
	"github.com/radon-h2020/radon-defect-predictor/internal/training"
)

const (
	metricsNamespaceConstant    = "radon"
	trainingSubsystemConstant   = "training"
	predictionSubsystemConstant = "prediction"
	labelClassifierConstant     = "classifier"
	labelMetricConstant         = "metric"
	labelFailureProneConstant   = "failure_prone"
	writeTextfileErrorTemplate  = "unable to write metrics to %s: %w"
	combinationsHelpConstant    = "Balancer, normalizer and classifier combinations cross-validated."
	runsHelpConstant            = "Completed training runs."
	durationHelpConstant        = "Wall-clock duration of training runs."
	bestScoreHelpConstant       = "Mean selection score of the best combination of the last run."
	predictionsHelpConstant     = "Files scored by a defect model."
	combinationsNameConstant    = "combinations_evaluated_total"
	runsNameConstant            = "runs_total"
	durationNameConstant        = "duration_seconds"
	bestScoreNameConstant       = "best_score"
	predictionsNameConstant     = "files_total"
)

var trainingDurationBuckets = prometheus.ExponentialBuckets(0.1, 4, 8)

// Recorder implements training.Observer and prediction.Observer on top of a private registry.
type Recorder struct {
	registry         *prometheus.Registry
	combinations     *prometheus.CounterVec
	trainingRuns     prometheus.Counter
	trainingDuration prometheus.Histogram
	bestScore        *prometheus.GaugeVec
	predictions      *prometheus.CounterVec
}

// NewRecorder registers the collectors in a fresh registry.
func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		combinations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: trainingSubsystemConstant,
			Name:      combinationsNameConstant,
			Help:      combinationsHelpConstant,
		}, []string{labelClassifierConstant}),
		trainingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: trainingSubsystemConstant,
			Name:      runsNameConstant,
			Help:      runsHelpConstant,
		}),
		trainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: trainingSubsystemConstant,
			Name:      durationNameConstant,
			Help:      durationHelpConstant,
			Buckets:   trainingDurationBuckets,
		}),
		bestScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: trainingSubsystemConstant,
			Name:      bestScoreNameConstant,
			Help:      bestScoreHelpConstant,
		}, []string{labelMetricConstant}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: predictionSubsystemConstant,
			Name:      predictionsNameConstant,
			Help:      predictionsHelpConstant,
		}, []string{labelFailureProneConstant}),
	}
	recorder.registry.MustRegister(
		recorder.combinations,
		recorder.trainingRuns,
		recorder.trainingDuration,
		recorder.bestScore,
		recorder.predictions,
	)
	return recorder
}

// CombinationEvaluated counts one cross-validated combination.
func (recorder *Recorder) CombinationEvaluated(result training.CombinationResult) {
	recorder.combinations.WithLabelValues(string(result.Classifier)).Inc()
}

// TrainingCompleted records the run duration and the best score.
func (recorder *Recorder) TrainingCompleted(report training.Report) {
	recorder.trainingRuns.Inc()
	recorder.trainingDuration.Observe(report.Duration.Seconds())
	bestValue, valueError := report.Best.MeanScores.Value(report.SelectionMetric)
	if valueError != nil {
		return
	}
	recorder.bestScore.WithLabelValues(string(report.SelectionMetric)).Set(bestValue)
}

// PredictionCompleted counts one prediction by verdict.
func (recorder *Recorder) PredictionCompleted(report prediction.Report) {
	recorder.predictions.WithLabelValues(strconv.FormatBool(report.FailureProne)).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format. An empty path is a
// no-op.
func (recorder *Recorder) WriteTextfile(path string) error {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return nil
	}
	if writeError := prometheus.WriteToTextfile(trimmedPath, recorder.registry); writeError != nil {
		return fmt.Errorf(writeTextfileErrorTemplate, trimmedPath, writeError)
	}
	return nil
}

var (
	_ training.Observer   = (*Recorder)(nil)
	_ prediction.Observer = (*Recorder)(nil)
)
