package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/radon-h2020/radon-defect-predictor/internal/classifiers"
	"github.com/radon-h2020/radon-defect-predictor/internal/preprocess"
	"github.com/radon-h2020/radon-defect-predictor/internal/utils/flags"
)

// Format selects the model encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

const (
	encodeModelTemplateConstant = "unable to encode model: %w"
	decodeModelTemplateConstant = "unable to decode model: %w"
	unsupportedFormatTemplate   = "unsupported model format %q"
)

// FormatChoices lists the accepted format names.
func FormatChoices() []string {
	return []string{string(FormatJSON), string(FormatCBOR)}
}

// ParseFormat validates a format name. An empty value yields json.
func ParseFormat(rawValue string) (Format, error) {
	if len(strings.TrimSpace(rawValue)) == 0 {
		return FormatJSON, nil
	}
	parsedChoice, parseError := flags.ParseChoice(rawValue, FormatChoices())
	if parseError != nil {
		return "", parseError
	}
	return Format(parsedChoice), nil
}

type jsonEnvelope struct {
	Balancer   preprocess.Balancer   `json:"balancer"`
	Normalizer preprocess.Normalizer `json:"normalizer"`
	Classifier classifiers.Kind      `json:"classifier"`
	Estimator  json.RawMessage       `json:"estimator"`
}

type cborEnvelope struct {
	Balancer   preprocess.Balancer   `cbor:"balancer"`
	Normalizer preprocess.Normalizer `cbor:"normalizer"`
	Classifier classifiers.Kind      `cbor:"classifier"`
	Estimator  cbor.RawMessage       `cbor:"estimator"`
}

// Encode serializes the pipeline (feature names are stored separately).
func Encode(model *Model, format Format) ([]byte, error) {
	if model.Classifier == nil {
		return nil, ErrMissingClassifier
	}
	switch format {
	case FormatJSON:
		estimator, estimatorError := json.Marshal(model.Classifier)
		if estimatorError != nil {
			return nil, fmt.Errorf(encodeModelTemplateConstant, estimatorError)
		}
		encoded, encodeError := json.Marshal(jsonEnvelope{
			Balancer:   model.Balancer,
			Normalizer: model.Normalizer,
			Classifier: model.Classifier.Kind(),
			Estimator:  estimator,
		})
		if encodeError != nil {
			return nil, fmt.Errorf(encodeModelTemplateConstant, encodeError)
		}
		return encoded, nil
	case FormatCBOR:
		estimator, estimatorError := cbor.Marshal(model.Classifier)
		if estimatorError != nil {
			return nil, fmt.Errorf(encodeModelTemplateConstant, estimatorError)
		}
		encoded, encodeError := cbor.Marshal(cborEnvelope{
			Balancer:   model.Balancer,
			Normalizer: model.Normalizer,
			Classifier: model.Classifier.Kind(),
			Estimator:  estimator,
		})
		if encodeError != nil {
			return nil, fmt.Errorf(encodeModelTemplateConstant, encodeError)
		}
		return encoded, nil
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplate, format)
	}
}

// Decode restores a pipeline encoded by Encode and rejects state that cannot be evaluated.
func Decode(encoded []byte, format Format) (*Model, error) {
	switch format {
	case FormatJSON:
		var envelope jsonEnvelope
		if decodeError := json.Unmarshal(encoded, &envelope); decodeError != nil {
			return nil, fmt.Errorf(decodeModelTemplateConstant, decodeError)
		}
		classifier, creationError := classifiers.New(envelope.Classifier, classifiers.Options{})
		if creationError != nil {
			return nil, fmt.Errorf(decodeModelTemplateConstant, creationError)
		}
		if decodeError := json.Unmarshal(envelope.Estimator, classifier); decodeError != nil {
			return nil, fmt.Errorf(decodeModelTemplateConstant, decodeError)
		}
		return validatedModel(&Model{Balancer: envelope.Balancer, Normalizer: envelope.Normalizer, Classifier: classifier})
	case FormatCBOR:
		var envelope cborEnvelope
		if decodeError := cbor.Unmarshal(encoded, &envelope); decodeError != nil {
			return nil, fmt.Errorf(decodeModelTemplateConstant, decodeError)
		}
		classifier, creationError := classifiers.New(envelope.Classifier, classifiers.Options{})
		if creationError != nil {
			return nil, fmt.Errorf(decodeModelTemplateConstant, creationError)
		}
		if decodeError := cbor.Unmarshal(envelope.Estimator, classifier); decodeError != nil {
			return nil, fmt.Errorf(decodeModelTemplateConstant, decodeError)
		}
		return validatedModel(&Model{Balancer: envelope.Balancer, Normalizer: envelope.Normalizer, Classifier: classifier})
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplate, format)
	}
}

func validatedModel(model *Model) (*Model, error) {
	if validationError := model.Validate(0); validationError != nil {
		return nil, fmt.Errorf(decodeModelTemplateConstant, validationError)
	}
	return model, nil
}
