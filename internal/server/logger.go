package server

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	// LogLevelNone disables logging.
	LogLevelNone = "none"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// NewLogger returns a zap logger for level and format. An empty level means
// info and an empty format means json.
func NewLogger(level, format string) (*zap.Logger, error) {
	if level == LogLevelNone {
		return zap.NewNop(), nil
	}
	if level == "" {
		level = LogLevelInfo
	}

	var zapConfig zap.Config
	switch format {
	case "", LogFormatJSON:
		zapConfig = zap.NewProductionConfig()
	case LogFormatText:
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Development = false
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.EncoderConfig.TimeKey = "time"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapConfig.Build()
}
