// Package logger builds the service-scoped structured logger used across the
// dashboard client. Every entry carries a "service" tag so interleaved output
// from the transport, store and sink stays attributable.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.MessageKey = "message"
	lg, err := cfg.Build()
	if err != nil {
		lg = zap.NewNop()
	}
	return lg.With(zap.String("service", service))
}

// Nop returns a discard logger for tests.
func Nop() *zap.Logger { return zap.NewNop() }
