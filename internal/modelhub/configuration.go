package modelhub

import (
	"strings"

	"github.com/radon-h2020/radon-defect-predictor/internal/httpclient"
)

const (
	defaultEnvironmentFileConstant = ".env"
	defaultTimeoutSecondsConstant  = 30
)

// Configuration stores defaults for the model command group.
type Configuration struct {
	ServiceURL      string `mapstructure:"service_url"`
	GitHubBaseURL   string `mapstructure:"github_base_url"`
	GitLabBaseURL   string `mapstructure:"gitlab_base_url"`
	RetryMax        int    `mapstructure:"retry_max"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	EnvironmentFile string `mapstructure:"env_file"`
	TokenSource     string `mapstructure:"token_source"`
}

// DefaultConfiguration supplies baseline values for the model commands.
func DefaultConfiguration() Configuration {
	return Configuration{
		ServiceURL:      DefaultServiceURL,
		RetryMax:        httpclient.DefaultRetryMax,
		TimeoutSeconds:  defaultTimeoutSecondsConstant,
		EnvironmentFile: defaultEnvironmentFileConstant,
	}
}

// Sanitize trims textual values and restores defaults for invalid ones.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	sanitized.ServiceURL = strings.TrimSpace(configuration.ServiceURL)
	if len(sanitized.ServiceURL) == 0 {
		sanitized.ServiceURL = defaults.ServiceURL
	}
	sanitized.GitHubBaseURL = strings.TrimSpace(configuration.GitHubBaseURL)
	sanitized.GitLabBaseURL = strings.TrimSpace(configuration.GitLabBaseURL)
	if sanitized.RetryMax < 0 {
		sanitized.RetryMax = defaults.RetryMax
	}
	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaults.TimeoutSeconds
	}
	sanitized.EnvironmentFile = strings.TrimSpace(configuration.EnvironmentFile)
	sanitized.TokenSource = strings.TrimSpace(configuration.TokenSource)
	return sanitized
}
