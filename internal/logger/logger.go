// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Config selects the level, the encoding (json or console) and the mode.
type Config struct {
	Level    string
	Encoding string
	Mode     string
}

// New builds a sugared logger from cfg.
func New(cfg Config) (*zap.SugaredLogger, error) {
	var zc zap.Config
	switch strings.ToLower(cfg.Mode) {
	case "", ModeProduction:
		zc = zap.NewProductionConfig()
	case ModeDevelopment:
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("logger: unknown mode %q", cfg.Mode)
	}

	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}

	switch strings.ToLower(cfg.Encoding) {
	case "":
	case "json", "console":
		zc.Encoding = strings.ToLower(cfg.Encoding)
	default:
		return nil, fmt.Errorf("logger: unknown encoding %q", cfg.Encoding)
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return l.Sugar(), nil
}
