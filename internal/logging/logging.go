// Package logging centralizes zap.Logger construction so every package
// and the CLI share one convention for verbosity and encoding.
package logging

import "go.uber.org/zap"

// New builds a development-style console logger when verbose is true,
// and a quiet, warn-and-above logger otherwise.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
