package httpclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	// DefaultRetryMax is the number of retries after the first attempt.
	DefaultRetryMax = 3
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	minimumRetryWaitConstant = 500 * time.Millisecond
	maximumRetryWaitConstant = 5 * time.Second
)

// Options configures a retrying client.
type Options struct {
	RetryMax int
	Timeout  time.Duration
}

// NewRetryableClient returns a retryablehttp client logging through logger. Once retries are
// exhausted the last response is returned to the caller instead of an error.
func NewRetryableClient(logger *zap.Logger, options Options) *retryablehttp.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	retryMax := options.RetryMax
	if retryMax < 0 {
		retryMax = DefaultRetryMax
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = minimumRetryWaitConstant
	client.RetryWaitMax = maximumRetryWaitConstant
	client.HTTPClient.Timeout = timeout
	client.Logger = LeveledLogger{logger: logger}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// NewStandardClient returns a *http.Client whose transport retries like NewRetryableClient.
func NewStandardClient(logger *zap.Logger, options Options) *http.Client {
	return NewRetryableClient(logger, options).StandardClient()
}

// LeveledLogger adapts zap to retryablehttp.LeveledLogger.
type LeveledLogger struct {
	logger *zap.Logger
}

// Error logs at error level.
func (leveledLogger LeveledLogger) Error(message string, keysAndValues ...interface{}) {
	leveledLogger.logger.Sugar().Errorw(message, keysAndValues...)
}

// Info logs at debug level; retryablehttp reports every request at info.
func (leveledLogger LeveledLogger) Info(message string, keysAndValues ...interface{}) {
	leveledLogger.logger.Sugar().Debugw(message, keysAndValues...)
}

// Debug logs at debug level.
func (leveledLogger LeveledLogger) Debug(message string, keysAndValues ...interface{}) {
	leveledLogger.logger.Sugar().Debugw(message, keysAndValues...)
}

// Warn logs at warn level.
func (leveledLogger LeveledLogger) Warn(message string, keysAndValues ...interface{}) {
	leveledLogger.logger.Sugar().Warnw(message, keysAndValues...)
}
