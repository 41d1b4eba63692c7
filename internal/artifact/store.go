package artifact

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// File names inside a model directory.
const (
	ModelJSONFileName = "model.json"
	ModelCBORFileName = "model.cbor"
	FeaturesFileName  = "model_features.json"
	ManifestFileName  = "model_manifest.json"
)

const (
	artifactFilePermissionsConstant = 0o644
	digestAlgorithmConstant         = "blake3"
	writeFileTemplateConstant       = "unable to write %s: %w"
	readFileTemplateConstant        = "unable to read %s: %w"
	decodeFileTemplateConstant      = "unable to decode %s: %w"
	digestMismatchTemplateConstant  = "digest mismatch for %s: manifest %s, computed %s"
	unsupportedAlgorithmTemplate    = "unsupported digest algorithm %q"
	manifestFileTemplateConstant    = "manifest names model file %q outside the model directory"
	featureCountTemplateConstant    = "manifest declares %d features, %s lists %d"
)

// Manifest describes the model file stored alongside it.
type Manifest struct {
	Format          Format    `json:"format"`
	File            string    `json:"file"`
	DigestAlgorithm string    `json:"digest_algorithm"`
	Digest          string    `json:"digest"`
	FeatureCount    int       `json:"feature_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// DigestMismatchError reports a model file whose content no longer matches its manifest.
type DigestMismatchError struct {
	File     string
	Expected string
	Actual   string
}

// Error describes the mismatch.
func (mismatchError DigestMismatchError) Error() string {
	return fmt.Sprintf(digestMismatchTemplateConstant, mismatchError.File, mismatchError.Expected, mismatchError.Actual)
}

// Digest returns the hex blake3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ModelFileName returns the file name used for format.
func ModelFileName(format Format) string {
	if format == FormatCBOR {
		return ModelCBORFileName
	}
	return ModelJSONFileName
}

// Store encodes model into directory and writes its features and manifest.
func Store(directory string, model *Model, format Format, createdAt time.Time) (Manifest, error) {
	encoded, encodeError := Encode(model, format)
	if encodeError != nil {
		return Manifest{}, encodeError
	}
	return StoreEncoded(directory, encoded, format, model.FeatureNames, createdAt)
}

// StoreEncoded writes an already encoded model, its ordered features and a manifest.
func StoreEncoded(directory string, encoded []byte, format Format, featureNames []string, createdAt time.Time) (Manifest, error) {
	modelFileName := ModelFileName(format)
	if writeError := writeFile(filepath.Join(directory, modelFileName), encoded); writeError != nil {
		return Manifest{}, writeError
	}

	if featureNames != nil {
		if writeError := WriteJSON(filepath.Join(directory, FeaturesFileName), featureNames); writeError != nil {
			return Manifest{}, writeError
		}
	}

	manifest := Manifest{
		Format:          format,
		File:            modelFileName,
		DigestAlgorithm: digestAlgorithmConstant,
		Digest:          Digest(encoded),
		FeatureCount:    len(featureNames),
		CreatedAt:       createdAt.UTC(),
	}
	if writeError := WriteJSON(filepath.Join(directory, ManifestFileName), manifest); writeError != nil {
		return Manifest{}, writeError
	}
	return manifest, nil
}

// Load restores the model stored in directory. Without a manifest, model.json is decoded without
// digest verification.
func Load(directory string) (*Model, error) {
	manifest, manifestFound, manifestError := readManifest(directory)
	if manifestError != nil {
		return nil, manifestError
	}
	if !manifestFound {
		manifest = Manifest{Format: FormatJSON, File: ModelJSONFileName}
	}
	if !isPlainFileName(manifest.File) {
		return nil, fmt.Errorf(manifestFileTemplateConstant, manifest.File)
	}

	modelPath := filepath.Join(directory, manifest.File)
	encoded, readError := os.ReadFile(modelPath)
	if readError != nil {
		return nil, fmt.Errorf(readFileTemplateConstant, modelPath, readError)
	}

	if manifestFound {
		if manifest.DigestAlgorithm != digestAlgorithmConstant {
			return nil, fmt.Errorf(unsupportedAlgorithmTemplate, manifest.DigestAlgorithm)
		}
		actualDigest := Digest(encoded)
		if actualDigest != manifest.Digest {
			return nil, DigestMismatchError{File: modelPath, Expected: manifest.Digest, Actual: actualDigest}
		}
	}

	model, decodeError := Decode(encoded, manifest.Format)
	if decodeError != nil {
		return nil, decodeError
	}

	featuresPath := filepath.Join(directory, FeaturesFileName)
	featuresData, featuresError := os.ReadFile(featuresPath)
	if featuresError != nil {
		return nil, fmt.Errorf(readFileTemplateConstant, featuresPath, featuresError)
	}
	if decodeError := json.Unmarshal(featuresData, &model.FeatureNames); decodeError != nil {
		return nil, fmt.Errorf(decodeFileTemplateConstant, featuresPath, decodeError)
	}
	if manifestFound && manifest.FeatureCount > 0 && manifest.FeatureCount != len(model.FeatureNames) {
		return nil, fmt.Errorf(featureCountTemplateConstant, manifest.FeatureCount, featuresPath, len(model.FeatureNames))
	}
	if validationError := model.Validate(len(model.FeatureNames)); validationError != nil {
		return nil, fmt.Errorf(decodeFileTemplateConstant, modelPath, validationError)
	}
	return model, nil
}

func isPlainFileName(fileName string) bool {
	if len(fileName) == 0 || fileName == "." || fileName == ".." {
		return false
	}
	return filepath.Base(fileName) == fileName && !strings.ContainsAny(fileName, `/\`)
}

// WriteJSON writes value as indented JSON.
func WriteJSON(path string, value any) error {
	encoded, encodeError := json.MarshalIndent(value, "", "  ")
	if encodeError != nil {
		return fmt.Errorf(writeFileTemplateConstant, path, encodeError)
	}
	return writeFile(path, append(encoded, '\n'))
}

func readManifest(directory string) (Manifest, bool, error) {
	manifestPath := filepath.Join(directory, ManifestFileName)
	manifestData, readError := os.ReadFile(manifestPath)
	if errors.Is(readError, fs.ErrNotExist) {
		return Manifest{}, false, nil
	}
	if readError != nil {
		return Manifest{}, false, fmt.Errorf(readFileTemplateConstant, manifestPath, readError)
	}

	var manifest Manifest
	if decodeError := json.Unmarshal(manifestData, &manifest); decodeError != nil {
		return Manifest{}, false, fmt.Errorf(decodeFileTemplateConstant, manifestPath, decodeError)
	}
	return manifest, true, nil
}

func writeFile(path string, data []byte) error {
	if writeError := os.WriteFile(path, data, artifactFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(writeFileTemplateConstant, path, writeError)
	}
	return nil
}
