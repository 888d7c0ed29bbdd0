// Package logger builds the zap logger used across the application.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger. format "json" gives the production encoder with ISO8601
// timestamps; anything else gives the development console encoder with
// coloured levels.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var config zap.Config
	if strings.EqualFold(format, "json") {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	return config.Build()
}

// MaskShort shortens an address or signature for log lines: abcd...wxyz.
func MaskShort(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 10 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}
