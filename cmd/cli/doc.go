// Package cli constructs the radon-defect-predictor command-line interface. It wires the
// train, predict, model, and metrics commands under one Cobra root, loads layered
// configuration through Viper, builds the zap logger, and persists Prometheus metrics
// collected during the invocation.
package cli
