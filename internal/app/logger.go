package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger builds a production zap logger at the given level (DEBUG, INFO, ...).
// An unknown level falls back to INFO and is reported once by the logger.
func Logger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level.SetLevel(lvl)

	lg, buildErr := cfg.Build()
	if buildErr != nil {
		panic(buildErr)
	}
	if err != nil {
		lg.Warn("unknown LOG_LEVEL, using INFO", zap.String("level", level))
	}
	return lg
}
