package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/dataset"
	"github.com/radon-h2020/radon-defect-predictor/internal/iacmetrics"
)

const (
	// DefaultReportFileName is the JSON Lines file receiving prediction reports.
	DefaultReportFileName = "prediction_report.json"

	analyzedAtLayoutConstant           = "2006-01-02"
	reportFilePermissionsConstant      = 0o644
	loadModelErrorTemplateConstant     = "unable to load model from %s: %w"
	readFileErrorTemplateConstant      = "unable to read %s: %w"
	extractErrorTemplateConstant       = "unable to extract metrics from %s: %w"
	predictErrorTemplateConstant       = "unable to predict %s: %w"
	openReportErrorTemplateConstant    = "unable to open report %s: %w"
	encodeReportErrorTemplateConstant  = "unable to encode report: %w"
	writeReportErrorTemplateConstant   = "unable to write report %s: %w"
	missingFeaturesMessageConstant     = "Model features absent from extracted metrics"
	predictionCompletedMessageConstant = "Predicted file"
	logFieldFileConstant               = "file"
	logFieldMissingFeaturesConstant    = "missing_features"
	logFieldFailureProneConstant       = "failure_prone"
	logFieldProbabilityConstant        = "probability"
	logFieldLanguageConstant           = "language"
)

// Report is one prediction verdict.
type Report struct {
	File         string  `json:"file"`
	FailureProne bool    `json:"failure_prone"`
	Probability  float64 `json:"probability"`
	AnalyzedAt   string  `json:"analyzed_at"`
}

// Request names the model, the analyzed file and its language.
type Request struct {
	ModelDirectory string
	FilePath       string
	Language       iacmetrics.Language
}

// Observer is notified about completed predictions.
type Observer interface {
	PredictionCompleted(report Report)
}

type noopObserver struct{}

func (noopObserver) PredictionCompleted(Report) {}

// Predictor applies stored models to files.
type Predictor struct {
	logger   *zap.Logger
	observer Observer
	clock    func() time.Time
}

// NewPredictor constructs a Predictor; nil arguments fall back to no-op implementations.
func NewPredictor(logger *zap.Logger, observer Observer) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Predictor{logger: logger, observer: observer, clock: time.Now}
}

// WithClock replaces the time source stamped on reports.
func (predictor *Predictor) WithClock(clock func() time.Time) *Predictor {
	if clock != nil {
		predictor.clock = clock
	}
	return predictor
}

// Predict loads the model, extracts the file metrics, aligns them to the model features and
// returns the verdict. Features the extractor does not produce read as zero.
func (predictor *Predictor) Predict(ctx context.Context, request Request) (Report, error) {
	if contextError := ctx.Err(); contextError != nil {
		return Report{}, contextError
	}

	model, loadError := artifact.Load(request.ModelDirectory)
	if loadError != nil {
		return Report{}, fmt.Errorf(loadModelErrorTemplateConstant, request.ModelDirectory, loadError)
	}

	content, readError := os.ReadFile(request.FilePath)
	if readError != nil {
		return Report{}, fmt.Errorf(readFileErrorTemplateConstant, request.FilePath, readError)
	}

	metrics, extractError := iacmetrics.Extract(request.Language, string(content))
	if extractError != nil {
		return Report{}, fmt.Errorf(extractErrorTemplateConstant, request.FilePath, extractError)
	}

	row, missingFeatures := dataset.Project(metrics, model.FeatureNames)
	if len(missingFeatures) > 0 {
		predictor.logger.Debug(missingFeaturesMessageConstant,
			zap.String(logFieldFileConstant, request.FilePath),
			zap.Strings(logFieldMissingFeaturesConstant, missingFeatures),
		)
	}

	failureProne, probability, predictError := model.Predict(row)
	if predictError != nil {
		return Report{}, fmt.Errorf(predictErrorTemplateConstant, request.FilePath, predictError)
	}

	report := Report{
		File:         request.FilePath,
		FailureProne: failureProne,
		Probability:  probability,
		AnalyzedAt:   predictor.clock().Format(analyzedAtLayoutConstant),
	}
	predictor.logger.Info(predictionCompletedMessageConstant,
		zap.String(logFieldFileConstant, report.File),
		zap.String(logFieldLanguageConstant, string(request.Language)),
		zap.Bool(logFieldFailureProneConstant, report.FailureProne),
		zap.Float64(logFieldProbabilityConstant, report.Probability),
	)
	predictor.observer.PredictionCompleted(report)
	return report, nil
}

// EncodeReport renders report as a single JSON line without the trailing newline.
func EncodeReport(report Report) ([]byte, error) {
	encoded, encodeError := json.Marshal(report)
	if encodeError != nil {
		return nil, fmt.Errorf(encodeReportErrorTemplateConstant, encodeError)
	}
	return encoded, nil
}

// AppendReport appends report as one JSON line to reportPath, creating the file when needed.
func AppendReport(reportPath string, report Report) error {
	encoded, encodeError := EncodeReport(report)
	if encodeError != nil {
		return encodeError
	}

	reportFile, openError := os.OpenFile(reportPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, reportFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(openReportErrorTemplateConstant, reportPath, openError)
	}
	if _, writeError := reportFile.Write(append(encoded, '\n')); writeError != nil {
		reportFile.Close()
		return fmt.Errorf(writeReportErrorTemplateConstant, reportPath, writeError)
	}
	if closeError := reportFile.Close(); closeError != nil {
		return fmt.Errorf(writeReportErrorTemplateConstant, reportPath, closeError)
	}
	return nil
}
