package training_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/dataset"
	"github.com/radon-h2020/radon-defect-predictor/internal/evaluation"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
	"github.com/radon-h2020/radon-defect-predictor/internal/training"
)

const trainingCompletedMessageConstant = "Training completed"

type recordingObserver struct {
	mutex        sync.Mutex
	combinations int
	reports      []training.Report
}

func (recorder *recordingObserver) CombinationEvaluated(training.CombinationResult) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.combinations++
}

func (recorder *recordingObserver) TrainingCompleted(report training.Report) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.reports = append(recorder.reports, report)
}

func syntheticDataset() *dataset.Dataset {
	data := &dataset.Dataset{FeatureNames: []string{"lines_code", "num_tasks", "num_vars"}}
	for index := 0; index < 40; index++ {
		failureProne := index%3 == 0
		linesOfCode := float64(10 + index%7)
		if failureProne {
			linesOfCode += 40
		}
		data.Rows = append(data.Rows, []float64{linesOfCode, float64(index % 5), float64(index % 2)})
		data.Labels = append(data.Labels, failureProne)
	}
	return data
}

func fixedClock() time.Time {
	return time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
}

func TestDefectPredictorTrainsGrid(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	recorder := &recordingObserver{}
	predictor, creationError := training.NewDefectPredictor(zap.New(observedCore), recorder)
	require.NoError(testInstance, creationError)
	predictor.WithClock(fixedClock)

	options := training.Options{
		Balancers:   []preprocess.Balancer{preprocess.BalancerNone, preprocess.BalancerRandomUnderSampling},
		Normalizers: []preprocess.NormalizerKind{preprocess.NormalizerNone, preprocess.NormalizerStandardized},
		Classifiers: []classifiers.Kind{classifiers.KindDecisionTree, classifiers.KindNaiveBayes},
		FoldCount:   5,
		Seed:        42,
		TreeCount:   5,
	}

	result, trainError := predictor.Train(context.Background(), syntheticDataset(), options)
	require.NoError(testInstance, trainError)
	require.Len(testInstance, result.Report.Combinations, 8)
	require.Equal(testInstance, evaluation.MetricF1, result.Report.SelectionMetric)
	require.Equal(testInstance, 5, result.Report.FoldCount)
	require.Equal(testInstance, []string{"lines_code", "num_tasks", "num_vars"}, result.Model.FeatureNames)

	for _, combination := range result.Report.Combinations {
		require.Len(testInstance, combination.FoldScores, 5)
		require.LessOrEqual(testInstance, combination.MeanScores.F1, result.Report.Best.MeanScores.F1)
	}
	require.Equal(testInstance, 1.0, result.Report.Best.MeanScores.F1)

	failureProne, probability, predictError := result.Model.Predict([]float64{55, 1, 0})
	require.NoError(testInstance, predictError)
	require.True(testInstance, failureProne)
	require.GreaterOrEqual(testInstance, probability, 0.5)

	require.Equal(testInstance, 8, recorder.combinations)
	require.Len(testInstance, recorder.reports, 1)
	require.Equal(testInstance, 1, observedLogs.FilterMessage(trainingCompletedMessageConstant).Len())
}

func TestDefectPredictorIsDeterministicAcrossParallelism(testInstance *testing.T) {
	options := training.Options{
		Balancers:   []preprocess.Balancer{preprocess.BalancerRandomOverSampling},
		Normalizers: []preprocess.NormalizerKind{preprocess.NormalizerMinMax},
		Classifiers: []classifiers.Kind{classifiers.KindRandomForest, classifiers.KindSupportVector, classifiers.KindLogisticRegression},
		FoldCount:   4,
		Seed:        7,
		TreeCount:   5,
	}

	var reports []training.Report
	for _, parallelism := range []int{1, 4} {
		predictor, creationError := training.NewDefectPredictor(zap.NewNop(), nil)
		require.NoError(testInstance, creationError)
		predictor.WithClock(fixedClock)

		options.Parallelism = parallelism
		result, trainError := predictor.Train(context.Background(), syntheticDataset(), options)
		require.NoError(testInstance, trainError)
		reports = append(reports, result.Report)
	}
	require.Equal(testInstance, reports[0].Combinations, reports[1].Combinations)
	require.Equal(testInstance, reports[0].Best, reports[1].Best)
}

func TestDefectPredictorValidatesInput(testInstance *testing.T) {
	predictor, creationError := training.NewDefectPredictor(zap.NewNop(), nil)
	require.NoError(testInstance, creationError)

	_, gridError := predictor.Train(context.Background(), syntheticDataset(), training.Options{})
	require.ErrorIs(testInstance, gridError, training.ErrEmptyGrid)

	_, metricError := predictor.Train(context.Background(), syntheticDataset(), training.Options{
		Balancers:       []preprocess.Balancer{preprocess.BalancerNone},
		Normalizers:     []preprocess.NormalizerKind{preprocess.NormalizerNone},
		Classifiers:     []classifiers.Kind{classifiers.KindDecisionTree},
		SelectionMetric: "brier",
	})
	require.Error(testInstance, metricError)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, cancelError := predictor.Train(cancelledContext, syntheticDataset(), training.Options{
		Balancers:   []preprocess.Balancer{preprocess.BalancerNone},
		Normalizers: []preprocess.NormalizerKind{preprocess.NormalizerNone},
		Classifiers: []classifiers.Kind{classifiers.KindDecisionTree},
	})
	require.ErrorIs(testInstance, cancelError, context.Canceled)

	_, loggerError := training.NewDefectPredictor(nil, nil)
	require.ErrorIs(testInstance, loggerError, training.ErrLoggerNotConfigured)
}

func TestDefectPredictorDump(testInstance *testing.T) {
	predictor, creationError := training.NewDefectPredictor(zap.NewNop(), nil)
	require.NoError(testInstance, creationError)
	predictor.WithClock(fixedClock)

	result, trainError := predictor.Train(context.Background(), syntheticDataset(), training.Options{
		Balancers:   []preprocess.Balancer{preprocess.BalancerNone},
		Normalizers: []preprocess.NormalizerKind{preprocess.NormalizerNone},
		Classifiers: []classifiers.Kind{classifiers.KindDecisionTree},
		FoldCount:   3,
	})
	require.NoError(testInstance, trainError)

	destination := testInstance.TempDir()
	manifest, dumpError := predictor.Dump(result, destination, artifact.FormatCBOR)
	require.NoError(testInstance, dumpError)
	require.Equal(testInstance, artifact.ModelCBORFileName, manifest.File)
	require.Equal(testInstance, fixedClock(), manifest.CreatedAt)

	reportContent, readError := os.ReadFile(filepath.Join(destination, training.ReportFileName))
	require.NoError(testInstance, readError)
	var decodedReport training.Report
	require.NoError(testInstance, json.Unmarshal(reportContent, &decodedReport))
	require.Equal(testInstance, classifiers.KindDecisionTree, decodedReport.Best.Classifier)

	restored, loadError := artifact.Load(destination)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, result.Model.FeatureNames, restored.FeatureNames)
}
