package prediction

import (
	"path/filepath"
	"strings"
)

// Configuration stores defaults for the predict command.
type Configuration struct {
	ReportFileName string `mapstructure:"report_file_name"`
}

// DefaultConfiguration supplies baseline values for prediction.
func DefaultConfiguration() Configuration {
	return Configuration{ReportFileName: DefaultReportFileName}
}

// Sanitize trims the report file name and keeps only its base name.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.ReportFileName = strings.TrimSpace(configuration.ReportFileName)
	if len(sanitized.ReportFileName) > 0 {
		sanitized.ReportFileName = filepath.Base(sanitized.ReportFileName)
	}
	if len(sanitized.ReportFileName) == 0 || sanitized.ReportFileName == "." || sanitized.ReportFileName == string(filepath.Separator) {
		sanitized.ReportFileName = DefaultReportFileName
	}
	return sanitized
}
