// Package logging wraps go.uber.org/zap behind a small structured
// logging interface (level parsing, io.Writer target, zap as the
// concrete backend). The core never imports zap directly — it takes a
// Logger interface so tests can substitute a no-op or recording fake.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging verbosity threshold.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel parses a level string as it appears in an account's
// [system] config section.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DebugLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "WARN":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "FATAL":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("logging: invalid level %q", s)
	}
}

// Logger is the structured logging contract the core depends on.
// WithField returns a derived logger carrying an extra key/value pair
// on every subsequent call, used to scope log lines to one
// component/pair/side.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	WithField(key string, value interface{}) Logger
}

// ZapLogger implements Logger on top of zap.SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a ZapLogger writing to w (typically an io.MultiWriter of
// the account's log file and os.Stdout) at the given level.
func New(level Level, w io.Writer) *ZapLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		level.zapLevel(),
	)
	return &ZapLogger{sugar: zap.New(core).Sugar()}
}

func (z *ZapLogger) Debug(msg string, kv ...interface{}) { z.sugar.Debugw(msg, kv...) }
func (z *ZapLogger) Info(msg string, kv ...interface{})  { z.sugar.Infow(msg, kv...) }
func (z *ZapLogger) Warn(msg string, kv ...interface{})  { z.sugar.Warnw(msg, kv...) }
func (z *ZapLogger) Error(msg string, kv ...interface{}) { z.sugar.Errorw(msg, kv...) }

func (z *ZapLogger) WithField(key string, value interface{}) Logger {
	return &ZapLogger{sugar: z.sugar.With(key, value)}
}

// Nop is a Logger that discards everything, for tests that don't
// assert on log output.
type Nop struct{}

func (Nop) Debug(string, ...interface{})       {}
func (Nop) Info(string, ...interface{})        {}
func (Nop) Warn(string, ...interface{})        {}
func (Nop) Error(string, ...interface{})       {}
func (n Nop) WithField(string, interface{}) Logger { return n }
