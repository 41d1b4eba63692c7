package modelhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/radon-h2020/radon-defect-predictor/internal/artifact"
	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
	"github.com/radon-h2020/radon-defect-predictor/internal/scoring"
)

const (
	// DefaultServiceURL is the pre-trained model endpoint.
	DefaultServiceURL = "https://radon.giovanni.pink/api/models/pre-trained-model"

	contentTypeHeaderConstant          = "Content-Type"
	acceptHeaderConstant               = "Accept"
	jsonMediaTypeConstant              = "application/json"
	statusErrorTemplateConstant        = "response returned status: %d"
	decodingErrorTemplateConstant      = "unable to decode model service response: %v"
	encodePayloadErrorTemplateConstant = "unable to encode model request: %w"
	buildRequestErrorTemplateConstant  = "unable to build model request: %w"
	requestErrorTemplateConstant       = "model request failed: %w"
	emptyModelMessageConstant          = "model service returned no model"
	requestingModelMessageConstant     = "Requesting pre-trained model"
	receivedModelMessageConstant       = "Received pre-trained model"
	logFieldServiceURLConstant         = "service_url"
	logFieldAttributesConstant         = "attributes"
	logFieldModelBytesConstant         = "model_bytes"
)

// ErrEmptyModel indicates the service answered without a model.
var ErrEmptyModel = errors.New(emptyModelMessageConstant)

// StatusError reports a non-200 answer from the model service.
type StatusError struct {
	StatusCode int
}

// Error describes the status.
func (statusError StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.StatusCode)
}

// ResponseDecodingError reports a response body that is not a usable model.
type ResponseDecodingError struct {
	Cause error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(decodingErrorTemplateConstant, decodingError.Cause)
}

// Unwrap exposes the underlying cause.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// Payload is the body the model service expects.
type Payload struct {
	CommitFrequency  float64 `json:"commitFrequency"`
	CoreContributors int     `json:"coreContributors"`
	IssueFrequency   float64 `json:"issueFrequency"`
	PercentComments  float64 `json:"percentComments"`
	PercentIaC       float64 `json:"percentIac"`
	SLOC             int     `json:"sloc"`
	Language         string  `json:"language"`
}

// NewPayload maps repository scores onto the service payload.
func NewPayload(scores scoring.Scores) Payload {
	return Payload{
		CommitFrequency:  scores.CommitFrequency,
		CoreContributors: scores.CoreContributors,
		IssueFrequency:   scores.IssueFrequency,
		PercentComments:  scores.PercentComments,
		PercentIaC:       scores.IaCRatio,
		SLOC:             scores.RepositorySize,
		Language:         scores.Language,
	}
}

// PreTrainedModel is the service answer: an encoded model and its ordered attributes.
type PreTrainedModel struct {
	Model      string   `json:"model"`
	Attributes []string `json:"attributes"`
}

// Options configures a Client.
type Options struct {
	ServiceURL string
	HTTP       httpclient.Options
	Client     *retryablehttp.Client
}

// Client talks to the model service.
type Client struct {
	logger     *zap.Logger
	client     *retryablehttp.Client
	serviceURL string
}

// NewClient constructs a Client; an empty service URL targets DefaultServiceURL.
func NewClient(logger *zap.Logger, options Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := options.Client
	if client == nil {
		client = httpclient.NewRetryableClient(logger, options.HTTP)
	}
	serviceURL := strings.TrimSpace(options.ServiceURL)
	if len(serviceURL) == 0 {
		serviceURL = DefaultServiceURL
	}
	return &Client{logger: logger, client: client, serviceURL: serviceURL}
}

// DownloadPreTrained posts payload and returns the model the service selected.
func (client *Client) DownloadPreTrained(ctx context.Context, payload Payload) (PreTrainedModel, error) {
	encodedPayload, encodeError := json.Marshal(payload)
	if encodeError != nil {
		return PreTrainedModel{}, fmt.Errorf(encodePayloadErrorTemplateConstant, encodeError)
	}

	request, requestError := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, client.serviceURL, bytes.NewReader(encodedPayload))
	if requestError != nil {
		return PreTrainedModel{}, fmt.Errorf(buildRequestErrorTemplateConstant, requestError)
	}
	request.Header.Set(contentTypeHeaderConstant, jsonMediaTypeConstant)
	request.Header.Set(acceptHeaderConstant, jsonMediaTypeConstant)

	client.logger.Info(requestingModelMessageConstant, zap.String(logFieldServiceURLConstant, client.serviceURL))
	response, responseError := client.client.Do(request)
	if responseError != nil {
		return PreTrainedModel{}, fmt.Errorf(requestErrorTemplateConstant, responseError)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		return PreTrainedModel{}, StatusError{StatusCode: response.StatusCode}
	}

	var model PreTrainedModel
	if decodeError := json.NewDecoder(response.Body).Decode(&model); decodeError != nil {
		return PreTrainedModel{}, ResponseDecodingError{Cause: decodeError}
	}
	client.logger.Debug(receivedModelMessageConstant,
		zap.Int(logFieldModelBytesConstant, len(model.Model)),
		zap.Strings(logFieldAttributesConstant, model.Attributes),
	)
	return model, nil
}

// StorePreTrained writes model.json, model_features.json and a manifest into directory. The
// model must decode as a JSON model artifact.
func StorePreTrained(directory string, model PreTrainedModel, createdAt time.Time) (artifact.Manifest, error) {
	if len(strings.TrimSpace(model.Model)) == 0 {
		return artifact.Manifest{}, ErrEmptyModel
	}
	encoded := []byte(model.Model)
	decoded, decodeError := artifact.Decode(encoded, artifact.FormatJSON)
	if decodeError != nil {
		return artifact.Manifest{}, ResponseDecodingError{Cause: decodeError}
	}

	var featureNames []string
	if len(model.Attributes) > 0 {
		featureNames = model.Attributes
		if validationError := decoded.Validate(len(featureNames)); validationError != nil {
			return artifact.Manifest{}, ResponseDecodingError{Cause: validationError}
		}
	}
	return artifact.StoreEncoded(directory, encoded, artifact.FormatJSON, featureNames, createdAt)
}
