// Package obslog provides the structured logging used across the
// incremental compilation service, following the zap setup the teacher
// repo's CLI entrypoint uses (cmd/nerd/main.go): a production zap.Config
// whose level is set once, at construction, from a debug flag.
package obslog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger for the service. debug raises the level to
// debug; otherwise the production default (info) applies.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("obslog: failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything, for tests and for
// callers that never configured logging explicitly.
func Nop() *zap.Logger {
	return zap.NewNop()
}
