// Package logging builds the zap logger used across deqcore.
package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"deqcore/internal/config"
)

// New builds a logger from the logging section of the configuration.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}

	zc := zap.NewProductionConfig()
	if cfg.Encoding == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = cfg.Encoding
	zc.DisableStacktrace = level > zapcore.DebugLevel
	if len(cfg.Output) > 0 {
		zc.OutputPaths = cfg.Output
		zc.ErrorOutputPaths = cfg.Output
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger.Named("deqcore"), nil
}

// Must is New for callers that cannot continue without a logger.
func Must(cfg config.LoggingConfig) *zap.Logger {
	return zap.Must(New(cfg))
}
