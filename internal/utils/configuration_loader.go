package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	configurationKeySeparatorConstant               = "."
	environmentKeySeparatorConstant                 = "_"
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
)

// ConfigurationLoader resolves the layered CLI configuration. Layers apply in increasing
// precedence: registered defaults, the embedded document, the explicit or discovered file,
// then PREFIX_SECTION_KEY environment variables.
type ConfigurationLoader struct {
	fileName          string
	fileType          string
	environmentPrefix string
	searchPaths       []string
	defaults          map[string]any
	embeddedDocument  []byte
	embeddedType      string
}

// ConfigurationLoaderOption customizes a ConfigurationLoader.
type ConfigurationLoaderOption func(*ConfigurationLoader)

// WithSearchPaths adds directories searched for fileName.fileType when no explicit file is given.
// Blank entries are ignored.
func WithSearchPaths(searchPaths ...string) ConfigurationLoaderOption {
	return func(loader *ConfigurationLoader) {
		for _, searchPath := range searchPaths {
			if trimmedSearchPath := strings.TrimSpace(searchPath); len(trimmedSearchPath) > 0 {
				loader.searchPaths = append(loader.searchPaths, trimmedSearchPath)
			}
		}
	}
}

// WithDefaults registers fallback values keyed by dotted configuration keys such as common.log_level.
func WithDefaults(defaults map[string]any) ConfigurationLoaderOption {
	return func(loader *ConfigurationLoader) {
		for key, value := range defaults {
			loader.defaults[key] = value
		}
	}
}

// WithEmbeddedDocument merges document beneath user files. The document is copied.
func WithEmbeddedDocument(document []byte, documentType string) ConfigurationLoaderOption {
	return func(loader *ConfigurationLoader) {
		loader.embeddedDocument = append([]byte(nil), document...)
		loader.embeddedType = strings.TrimSpace(documentType)
	}
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
	// EnvironmentOverrides lists the configuration keys set through environment variables, sorted.
	EnvironmentOverrides []string
}

// NewConfigurationLoader creates a loader for fileName.fileType honoring environmentPrefix.
func NewConfigurationLoader(fileName string, fileType string, environmentPrefix string, options ...ConfigurationLoaderOption) *ConfigurationLoader {
	loader := &ConfigurationLoader{
		fileName:          fileName,
		fileType:          fileType,
		environmentPrefix: environmentPrefix,
		defaults:          map[string]any{},
	}
	for _, option := range options {
		option(loader)
	}
	return loader
}

// Load populates targetConfiguration. A non-empty explicitFile must exist; otherwise the search
// paths are consulted and a missing file is not an error.
func (loader *ConfigurationLoader) Load(explicitFile string, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.fileName)
	viperInstance.SetConfigType(loader.fileType)
	for key, value := range loader.defaults {
		viperInstance.SetDefault(key, value)
	}

	if mergeError := loader.mergeEmbeddedDocument(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}
	if readError := loader.mergeConfigurationFile(viperInstance, strings.TrimSpace(explicitFile)); readError != nil {
		return LoadedConfiguration{}, readError
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	viperInstance.AutomaticEnv()

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{
		ConfigFileUsed:       viperInstance.ConfigFileUsed(),
		EnvironmentOverrides: loader.environmentOverrides(viperInstance.AllKeys()),
	}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedDocument(viperInstance *viper.Viper) error {
	if len(loader.embeddedDocument) == 0 {
		return nil
	}
	if len(loader.embeddedType) > 0 {
		viperInstance.SetConfigType(loader.embeddedType)
		defer viperInstance.SetConfigType(loader.fileType)
	}
	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedDocument)); mergeError != nil {
		return fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) mergeConfigurationFile(viperInstance *viper.Viper, explicitFile string) error {
	if len(explicitFile) > 0 {
		viperInstance.SetConfigFile(explicitFile)
	} else {
		for _, searchPath := range loader.searchPaths {
			viperInstance.AddConfigPath(searchPath)
		}
	}

	readError := viperInstance.MergeInConfig()
	var notFoundError viper.ConfigFileNotFoundError
	if readError != nil && !errors.As(readError, &notFoundError) {
		return fmt.Errorf(configurationReadErrorTemplateConstant, readError)
	}
	return nil
}

func (loader *ConfigurationLoader) environmentOverrides(keys []string) []string {
	var overriddenKeys []string
	for _, key := range keys {
		if _, present := os.LookupEnv(loader.environmentVariable(key)); present {
			overriddenKeys = append(overriddenKeys, key)
		}
	}
	sort.Strings(overriddenKeys)
	return overriddenKeys
}

func (loader *ConfigurationLoader) environmentVariable(key string) string {
	variable := strings.ToUpper(strings.ReplaceAll(key, configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	if len(loader.environmentPrefix) == 0 {
		return variable
	}
	return strings.ToUpper(loader.environmentPrefix) + environmentKeySeparatorConstant + variable
}
