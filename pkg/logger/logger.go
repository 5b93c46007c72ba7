package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New build production zap logger used by the engine and the build pipeline.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log, nil
}
