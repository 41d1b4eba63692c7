// Package httpclient builds the retrying HTTP clients used to reach hosting APIs and the model
// service, logging retries through zap.
package httpclient
