// Package log provides the leveled logger used throughout the engine. It
// wraps a zap sugared logger behind a small interface so applications can
// swap in their own implementation.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level names accepted by SetLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Logger is the logging interface the engine calls. Default satisfies it
// with zap; replace it with any implementation before starting a run.
type Logger interface {
	// Debug logs to DEBUG level in the manner of fmt.Print.
	Debug(args ...any)
	// Debugf logs to DEBUG level in the manner of fmt.Printf.
	Debugf(format string, args ...any)
	// Info logs to INFO level in the manner of fmt.Print.
	Info(args ...any)
	// Infof logs to INFO level in the manner of fmt.Printf.
	Infof(format string, args ...any)
	// Warn logs to WARN level in the manner of fmt.Print.
	Warn(args ...any)
	// Warnf logs to WARN level in the manner of fmt.Printf.
	Warnf(format string, args ...any)
	// Error logs to ERROR level in the manner of fmt.Print.
	Error(args ...any)
	// Errorf logs to ERROR level in the manner of fmt.Printf.
	Errorf(format string, args ...any)
}

// Default is the logger the package-level functions delegate to.
var Default Logger = zap.New(
	zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		zapLevel,
	),
	zap.AddCaller(),
	zap.AddCallerSkip(1),
).Sugar()

// SetLevel sets the level of the default logger. Unrecognized names fall
// back to info.
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		zapLevel.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// Debug logs to DEBUG level in the manner of fmt.Print.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs to DEBUG level in the manner of fmt.Printf.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs to INFO level in the manner of fmt.Print.
func Info(args ...any) { Default.Info(args...) }

// Infof logs to INFO level in the manner of fmt.Printf.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs to WARN level in the manner of fmt.Print.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs to WARN level in the manner of fmt.Printf.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs to ERROR level in the manner of fmt.Print.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs to ERROR level in the manner of fmt.Printf.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }
