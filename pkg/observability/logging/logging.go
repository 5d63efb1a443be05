// Package logging provides the engine's leveled logging surface, backed by
// zap. The package-level helpers are safe to call before initialization;
// they fall back to a production logger built on first use.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop().Sugar()
	inited bool
)

// InitLoggerFromEnv configures the global logger from the LOG_LEVEL
// environment variable (debug, info, warn, error; default info).
// LOG_FORMAT=console switches off JSON encoding.
func InitLoggerFromEnv() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(strings.ToLower(os.Getenv("LOG_LEVEL"))); raw != "" {
		if err := level.Set(raw); err != nil {
			return nil, err
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	SetLogger(l)
	return l, nil
}

// SetLogger replaces the global logger. Used by tests and by callers that
// want to supply their own zap instance.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
	inited = true
}

func get() *zap.SugaredLogger {
	mu.RLock()
	if inited {
		defer mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !inited {
		l, err := zap.NewProduction(zap.AddCallerSkip(1))
		if err == nil {
			logger = l.Sugar()
		}
		inited = true
	}
	return logger
}

// Debugf logs at debug level with fmt-style formatting.
func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }

// Infof logs at info level with fmt-style formatting.
func Infof(format string, args ...interface{}) { get().Infof(format, args...) }

// Warnf logs at warn level with fmt-style formatting.
func Warnf(format string, args ...interface{}) { get().Warnf(format, args...) }

// Errorf logs at error level with fmt-style formatting.
func Errorf(format string, args ...interface{}) { get().Errorf(format, args...) }

// Sync flushes buffered log entries.
func Sync() {
	_ = get().Sync()
}
