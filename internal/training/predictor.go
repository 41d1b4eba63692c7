package training

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/dataset"
	"github.com/radon-h2020/radon-defect-predictor/internal/evaluation"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
)

const (
	// ReportFileName is the cross-validation report written next to the model.
	ReportFileName = "cv_report.json"

	emptyGridMessageConstant          = "at least one balancer, normalizer and classifier is required"
	loggerNotConfiguredMessage        = "training logger not configured"
	combinationFailedTemplateConstant = "%s/%s/%s fold %d: %w"
	refitFailedTemplateConstant       = "refit %s/%s/%s: %w"
	logMessageTrainingStarted         = "Training started"
	logMessageCombinationEvaluated    = "Combination evaluated"
	logMessageTrainingCompleted       = "Training completed"
	logMessageModelStored             = "Model stored"
	logFieldCombinations              = "combinations"
	logFieldFolds                     = "folds"
	logFieldRows                      = "rows"
	logFieldFeatures                  = "features"
	logFieldBalancer                  = "balancer"
	logFieldNormalizer                = "normalizer"
	logFieldClassifier                = "classifier"
	logFieldMetric                    = "metric"
	logFieldScore                     = "score"
	logFieldDestination               = "destination"
	logFieldDigest                    = "digest"
	logFieldDuration                  = "duration"
	foldSeedOffsetConstant            = 1
	combinationSeedMultiplierConstant = 1_000_003
)

// ErrEmptyGrid indicates Options lacks a balancer, normalizer or classifier.
var ErrEmptyGrid = errors.New(emptyGridMessageConstant)

// ErrLoggerNotConfigured indicates a DefectPredictor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessage)

// Clock returns the current time.
type Clock func() time.Time

// DefectPredictor selects and fits the best defect prediction pipeline.
type DefectPredictor struct {
	logger   *zap.Logger
	observer Observer
	clock    Clock
}

// NewDefectPredictor constructs a DefectPredictor. A nil observer discards notifications.
func NewDefectPredictor(logger *zap.Logger, observer Observer) (*DefectPredictor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &DefectPredictor{logger: logger, observer: observer, clock: time.Now}, nil
}

// WithClock replaces the time source.
func (predictor *DefectPredictor) WithClock(clock Clock) *DefectPredictor {
	if clock != nil {
		predictor.clock = clock
	}
	return predictor
}

// Train cross-validates the grid and refits the best combination on every row.
func (predictor *DefectPredictor) Train(executionContext context.Context, data *dataset.Dataset, options Options) (Result, error) {
	options = normalizeOptions(options)
	if len(options.Balancers) == 0 || len(options.Normalizers) == 0 || len(options.Classifiers) == 0 {
		return Result{}, ErrEmptyGrid
	}
	if _, metricError := (evaluation.Scores{}).Value(options.SelectionMetric); metricError != nil {
		return Result{}, metricError
	}
	if validationError := data.Validate(); validationError != nil {
		return Result{}, validationError
	}

	startedAt := predictor.clock()
	folds, foldError := evaluation.StratifiedKFold(data.Labels, options.FoldCount, options.Seed)
	if foldError != nil {
		return Result{}, foldError
	}

	grid := buildGrid(options)
	predictor.logger.Info(logMessageTrainingStarted,
		zap.Int(logFieldCombinations, len(grid)),
		zap.Int(logFieldFolds, len(folds)),
		zap.Int(logFieldRows, data.Len()),
		zap.Int(logFieldFeatures, len(data.FeatureNames)),
	)

	results := make([]CombinationResult, len(grid))
	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(options.Parallelism)
	for combinationIndex, combination := range grid {
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			result, evaluationError := crossValidate(groupContext, data, folds, combination, options, combinationSeed(options.Seed, combinationIndex))
			if evaluationError != nil {
				return evaluationError
			}
			results[combinationIndex] = result
			predictor.observer.CombinationEvaluated(result)
			predictor.logger.Debug(logMessageCombinationEvaluated,
				zap.String(logFieldBalancer, string(combination.Balancer)),
				zap.String(logFieldNormalizer, string(combination.Normalizer)),
				zap.String(logFieldClassifier, string(combination.Classifier)),
				zap.Float64(string(options.SelectionMetric), mustValue(result.MeanScores, options.SelectionMetric)),
			)
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return Result{}, waitError
	}

	bestIndex := selectBest(results, options.SelectionMetric)
	best := results[bestIndex]
	model, refitError := fitPipeline(data.Rows, data.Labels, best.Combination, options, combinationSeed(options.Seed, bestIndex))
	if refitError != nil {
		return Result{}, fmt.Errorf(refitFailedTemplateConstant, best.Balancer, best.Normalizer, best.Classifier, refitError)
	}
	model.FeatureNames = append([]string(nil), data.FeatureNames...)

	completedAt := predictor.clock()
	report := Report{
		SelectionMetric: options.SelectionMetric,
		FoldCount:       len(folds),
		Seed:            options.Seed,
		RowCount:        data.Len(),
		FeatureNames:    model.FeatureNames,
		SkippedColumns:  data.SkippedColumns,
		Best:            best,
		Combinations:    results,
		Duration:        completedAt.Sub(startedAt),
		CompletedAt:     completedAt.UTC(),
	}
	predictor.observer.TrainingCompleted(report)
	predictor.logger.Info(logMessageTrainingCompleted,
		zap.String(logFieldBalancer, string(best.Balancer)),
		zap.String(logFieldNormalizer, string(best.Normalizer)),
		zap.String(logFieldClassifier, string(best.Classifier)),
		zap.String(logFieldMetric, string(options.SelectionMetric)),
		zap.Float64(logFieldScore, mustValue(best.MeanScores, options.SelectionMetric)),
		zap.Duration(logFieldDuration, report.Duration),
	)

	return Result{Model: model, Report: report}, nil
}

// Dump writes the model, its features, manifest and the cross-validation report to destination.
func (predictor *DefectPredictor) Dump(result Result, destination string, format artifact.Format) (artifact.Manifest, error) {
	manifest, storeError := artifact.Store(destination, result.Model, format, predictor.clock())
	if storeError != nil {
		return artifact.Manifest{}, storeError
	}
	if reportError := artifact.WriteJSON(filepath.Join(destination, ReportFileName), result.Report); reportError != nil {
		return artifact.Manifest{}, reportError
	}
	predictor.logger.Info(logMessageModelStored,
		zap.String(logFieldDestination, destination),
		zap.String(logFieldDigest, manifest.Digest),
	)
	return manifest, nil
}

func normalizeOptions(options Options) Options {
	if options.FoldCount == 0 {
		options.FoldCount = evaluation.DefaultFoldCount
	}
	if len(options.SelectionMetric) == 0 {
		options.SelectionMetric = evaluation.DefaultMetric
	}
	if options.Parallelism <= 0 {
		options.Parallelism = runtime.GOMAXPROCS(0)
	}
	return options
}

func buildGrid(options Options) []Combination {
	grid := make([]Combination, 0, len(options.Balancers)*len(options.Normalizers)*len(options.Classifiers))
	for _, balancer := range options.Balancers {
		for _, normalizer := range options.Normalizers {
			for _, classifier := range options.Classifiers {
				grid = append(grid, Combination{Balancer: balancer, Normalizer: normalizer, Classifier: classifier})
			}
		}
	}
	return grid
}

func combinationSeed(seed uint64, combinationIndex int) uint64 {
	return seed*combinationSeedMultiplierConstant + uint64(combinationIndex)
}

func crossValidate(executionContext context.Context, data *dataset.Dataset, folds []evaluation.Fold, combination Combination, options Options, seed uint64) (CombinationResult, error) {
	result := CombinationResult{Combination: combination, FoldScores: make([]evaluation.Scores, 0, len(folds))}
	for foldIndex, fold := range folds {
		if contextError := executionContext.Err(); contextError != nil {
			return CombinationResult{}, contextError
		}
		trainSet, trainError := data.Subset(fold.TrainIndices)
		if trainError != nil {
			return CombinationResult{}, trainError
		}
		testSet, testError := data.Subset(fold.TestIndices)
		if testError != nil {
			return CombinationResult{}, testError
		}

		model, fitError := fitPipeline(trainSet.Rows, trainSet.Labels, combination, options, seed+uint64(foldIndex)+foldSeedOffsetConstant)
		if fitError != nil {
			return CombinationResult{}, fmt.Errorf(combinationFailedTemplateConstant, combination.Balancer, combination.Normalizer, combination.Classifier, foldIndex, fitError)
		}

		probabilities := make([]float64, testSet.Len())
		for rowIndex, row := range testSet.Rows {
			probability, probabilityError := model.Probability(row)
			if probabilityError != nil {
				return CombinationResult{}, probabilityError
			}
			probabilities[rowIndex] = probability
		}
		scores, scoreError := evaluation.Score(testSet.Labels, probabilities)
		if scoreError != nil {
			return CombinationResult{}, scoreError
		}
		result.FoldScores = append(result.FoldScores, scores)
	}
	result.MeanScores = evaluation.MeanScores(result.FoldScores)
	return result, nil
}

// fitPipeline balances, normalizes and fits one combination on the given rows.
func fitPipeline(rows [][]float64, labels []bool, combination Combination, options Options, seed uint64) (*artifact.Model, error) {
	randomSource := rand.New(rand.NewPCG(seed, seed>>1))
	balancedRows, balancedLabels, balanceError := preprocess.Balance(combination.Balancer, rows, labels, randomSource)
	if balanceError != nil {
		return nil, balanceError
	}

	normalizer, normalizerError := preprocess.FitNormalizer(combination.Normalizer, balancedRows)
	if normalizerError != nil {
		return nil, normalizerError
	}
	normalizedRows, transformError := normalizer.TransformAll(balancedRows)
	if transformError != nil {
		return nil, transformError
	}

	classifier, creationError := classifiers.New(combination.Classifier, classifiers.Options{Seed: seed, TreeCount: options.TreeCount})
	if creationError != nil {
		return nil, creationError
	}
	if fitError := classifier.Fit(normalizedRows, balancedLabels); fitError != nil {
		return nil, fitError
	}

	return &artifact.Model{Balancer: combination.Balancer, Normalizer: normalizer, Classifier: classifier}, nil
}

// selectBest picks the highest mean selection metric, breaking ties by mean ROC AUC and then by grid order.
func selectBest(results []CombinationResult, metric evaluation.Metric) int {
	bestIndex := 0
	for candidateIndex := 1; candidateIndex < len(results); candidateIndex++ {
		candidateScore := mustValue(results[candidateIndex].MeanScores, metric)
		bestScore := mustValue(results[bestIndex].MeanScores, metric)
		switch {
		case candidateScore > bestScore:
			bestIndex = candidateIndex
		case candidateScore == bestScore && results[candidateIndex].MeanScores.ROCAUC > results[bestIndex].MeanScores.ROCAUC:
			bestIndex = candidateIndex
		}
	}
	return bestIndex
}

func mustValue(scores evaluation.Scores, metric evaluation.Metric) float64 {
	value, _ := scores.Value(metric)
	return value
}
