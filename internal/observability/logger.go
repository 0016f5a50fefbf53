// Package observability constructs the process-wide zap logger.
//
// Unlike the teacher's package-level observability.CLILogger, the
// logger here is built once in main and threaded through constructors
// explicitly — per the spec's design note against module-level mutable
// state (the teacher's global LLM-defaults pattern is exactly what that
// note warns against).
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// LogFilePath, if non-empty, adds a rotating file sink alongside
	// the always-present stderr console sink.
	LogFilePath string

	// Debug enables debug-level logging; otherwise info is the floor.
	Debug bool

	// MaxSizeMB, MaxBackups and MaxAgeDays configure log rotation when
	// LogFilePath is set. Zero values fall back to lumberjack defaults
	// except MaxSizeMB, which defaults to 100.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger per cfg. The returned logger must be
// Sync()'d by the caller before process exit.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}

	if cfg.LogFilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		jsonEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller()), nil
}
