// Package logger builds the zap loggers shared by the binaries and scrubs
// user-controlled values before they reach a log line.
package logger

import (
	"errors"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func level(debug bool, quiet zapcore.Level) zap.AtomicLevel {
	if debug {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zap.NewAtomicLevelAt(quiet)
}

// jsonEncoding is zap's production encoder with ISO8601 "ts" timestamps and
// no function names.
func jsonEncoding() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.FunctionKey = zapcore.OmitKey
	return enc
}

// NewProductionLogger returns the JSON logger for the server and worker.
// Errors carry stack traces; fields are attached to every entry.
func NewProductionLogger(debug bool, fields ...zap.Field) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = level(debug, zapcore.InfoLevel)
	cfg.EncoderConfig = jsonEncoding()
	if debug {
		cfg.Sampling = nil
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.With(fields...), nil
}

// NewCLILogger returns a colored console logger on stderr for the command
// line tools. Below debug it only shows warnings so stdout stays scriptable.
func NewCLILogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level(debug, zapcore.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !debug
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// Sync flushes buffered entries. Terminals and pipes reject fsync with
// EINVAL or ENOTTY; those are not reported.
func Sync(log *zap.Logger) error {
	if log == nil {
		return nil
	}
	err := log.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
