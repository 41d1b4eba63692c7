package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	timestampEncoderKeyConstant          = "timestamp"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LoggingSettings carries the common.log_level and common.log_format values after flag overrides.
// Both values are matched case-insensitively.
type LoggingSettings struct {
	Level  LogLevel
	Format LogFormat
}

// Normalized returns the settings trimmed and lowercased.
func (settings LoggingSettings) Normalized() LoggingSettings {
	return LoggingSettings{
		Level:  LogLevel(strings.ToLower(strings.TrimSpace(string(settings.Level)))),
		Format: LogFormat(strings.ToLower(strings.TrimSpace(string(settings.Format)))),
	}
}

func (settings LoggingSettings) encoder() (zapcore.Encoder, error) {
	switch settings.Format {
	case LogFormatStructured:
		encoderConfiguration := zap.NewProductionEncoderConfig()
		encoderConfiguration.TimeKey = timestampEncoderKeyConstant
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(encoderConfiguration), nil
	case LogFormatConsole:
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(encoderConfiguration), nil
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, settings.Format)
	}
}

// LoggerFactory builds zap.Logger instances for CLI commands.
type LoggerFactory struct {
	sink zapcore.WriteSyncer
}

// NewLoggerFactory constructs a factory that writes to standard error.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// WithSink redirects every logger created afterwards to sink.
func (factory *LoggerFactory) WithSink(sink zapcore.WriteSyncer) *LoggerFactory {
	factory.sink = sink
	return factory
}

// CreateLogger produces a zap.Logger honoring settings. Without a sink the logger writes to
// standard error so command output on standard output stays parseable.
func (factory *LoggerFactory) CreateLogger(settings LoggingSettings) (*zap.Logger, error) {
	normalizedSettings := settings.Normalized()
	zapLogLevel, levelExists := logLevelMapping[normalizedSettings.Level]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, settings.Level)
	}

	encoder, encoderError := normalizedSettings.encoder()
	if encoderError != nil {
		return nil, encoderError
	}

	sink := factory.sink
	if sink == nil {
		sink = zapcore.Lock(os.Stderr)
	}

	options := []zap.Option{zap.ErrorOutput(sink)}
	if normalizedSettings.Format == LogFormatStructured {
		options = append(options, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(zapcore.NewCore(encoder, sink, zapLogLevel), options...), nil
}
