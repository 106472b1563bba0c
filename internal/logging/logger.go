// Package logging provides the shared zap logger for the application.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the global logger. It is set by InitLogger and defaults to a no-op
// logger so packages can log before initialization without nil checks.
var L = zap.NewNop()

// InitLogger builds the global logger. Call once at startup, before any
// configuration is read, so config loading itself can log.
func InitLogger(development bool) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		// A logger that cannot be built leaves us no way to report errors;
		// fall back to the no-op logger rather than crash.
		return
	}
	L = logger
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() {
	_ = L.Sync()
}
