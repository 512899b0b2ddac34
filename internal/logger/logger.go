// Package logger provides the process-wide structured logging singleton used
// by skillsync, for both CLI and long-running sync use.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Debug logs a message at debug level using the singleton logger.
func Debug(msg string) {
	zap.S().Debug(msg)
}

// Debugf logs a formatted message at debug level using the singleton logger.
func Debugf(msg string, args ...any) {
	zap.S().Debugf(msg, args...)
}

// Debugw logs a message at debug level with additional key-value pairs.
func Debugw(msg string, keysAndValues ...any) {
	zap.S().Debugw(msg, keysAndValues...)
}

// Info logs a message at info level using the singleton logger.
func Info(msg string) {
	zap.S().Info(msg)
}

// Infof logs a formatted message at info level using the singleton logger.
func Infof(msg string, args ...any) {
	zap.S().Infof(msg, args...)
}

// Infow logs a message at info level with additional key-value pairs.
func Infow(msg string, keysAndValues ...any) {
	zap.S().Infow(msg, keysAndValues...)
}

// Warn logs a message at warning level using the singleton logger.
func Warn(msg string) {
	zap.S().Warn(msg)
}

// Warnf logs a formatted message at warning level using the singleton logger.
func Warnf(msg string, args ...any) {
	zap.S().Warnf(msg, args...)
}

// Warnw logs a message at warning level with additional key-value pairs.
func Warnw(msg string, keysAndValues ...any) {
	zap.S().Warnw(msg, keysAndValues...)
}

// Error logs a message at error level using the singleton logger.
func Error(msg string) {
	zap.S().Error(msg)
}

// Errorf logs a formatted message at error level using the singleton logger.
func Errorf(msg string, args ...any) {
	zap.S().Errorf(msg, args...)
}

// Errorw logs a message at error level with additional key-value pairs.
func Errorw(msg string, keysAndValues ...any) {
	zap.S().Errorw(msg, keysAndValues...)
}

// Initialize installs the global logger. Console encoding on a terminal,
// JSON when SKILLSYNC_JSON_LOGS is set. The level comes from
// SKILLSYNC_LOG_LEVEL (debug, info, warn, error), defaulting to info.
func Initialize() {
	level := parseLevel(os.Getenv("SKILLSYNC_LOG_LEVEL"))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if os.Getenv("SKILLSYNC_JSON_LOGS") != "" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	zap.ReplaceGlobals(zap.New(core))
}

func parseLevel(raw string) zapcore.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
