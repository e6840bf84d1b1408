// Package logging provides the structured logger shared by every component of the
// checkout service. It keeps the LoggerV2/Fields call shape used across acme-shop
// services and is backed by zap.
package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields carries structured key/value pairs for a single log entry.
type Fields map[string]interface{}

// LoggerV2 is a named structured logger. A nil *LoggerV2 discards everything.
type LoggerV2 struct {
	zl *zap.Logger
}

var (
	baseMu sync.RWMutex
	base   = mustBuild(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
)

// Configure rebuilds the process-wide base logger. Loggers created before the call keep
// their previous configuration.
func Configure(env, level string) error {
	zl, err := build(env, level)
	if err != nil {
		return err
	}

	baseMu.Lock()
	base = zl
	baseMu.Unlock()
	return nil
}

// NewLoggerV2 returns a logger named after the component that owns it.
func NewLoggerV2(name string) *LoggerV2 {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return &LoggerV2{zl: base.Named(name)}
}

// NewNop returns a logger that drops every entry.
func NewNop() *LoggerV2 {
	return &LoggerV2{zl: zap.NewNop()}
}

// NewWithCore wraps an existing zap core, e.g. an observer in tests.
func NewWithCore(core zapcore.Core) *LoggerV2 {
	return &LoggerV2{zl: zap.New(core)}
}

// With returns a child logger that always carries fields.
func (l *LoggerV2) With(fields Fields) *LoggerV2 {
	if l == nil {
		return nil
	}
	return &LoggerV2{zl: l.zl.With(toZap([]Fields{fields})...)}
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	l.zl.Debug(msg, toZap(fields)...)
}

func (l *LoggerV2) Info(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	l.zl.Info(msg, toZap(fields)...)
}

func (l *LoggerV2) Warn(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	l.zl.Warn(msg, toZap(fields)...)
}

func (l *LoggerV2) Error(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	l.zl.Error(msg, toZap(fields)...)
}

// Fatal logs and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) {
	if l == nil {
		os.Exit(1)
	}
	l.zl.Fatal(msg, toZap(fields)...)
}

// Sync flushes buffered entries.
func (l *LoggerV2) Sync() error {
	if l == nil {
		return nil
	}
	return l.zl.Sync()
}

// Info logs through the base logger.
func Info(msg string, fields ...Fields) {
	baseMu.RLock()
	zl := base
	baseMu.RUnlock()
	zl.Info(msg, toZap(fields)...)
}

// Infof logs a formatted message through the base logger.
// TODO(TEAM-PLATFORM): Replace remaining Infof call sites with structured Info.
func Infof(format string, args ...interface{}) {
	baseMu.RLock()
	zl := base
	baseMu.RUnlock()
	zl.Info(fmt.Sprintf(format, args...))
}

func toZap(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(fields[0]))
	for _, f := range fields {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, zap.Any(k, f[k]))
		}
	}
	return out
}

func build(env, level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	if env == "development" || env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

func mustBuild(env, level string) *zap.Logger {
	zl, err := build(env, level)
	if err != nil {
		zl, _ = build(env, "")
	}
	return zl
}
