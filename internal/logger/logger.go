package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers don't need to import logrus.
type Fields = logrus.Fields

type Logger struct {
	logger *logrus.Logger
	fields logrus.Fields
	ctx    context.Context
}

// NewLogger builds a logger writing to stdout. format is "json" or "text";
// an unknown level falls back to info.
func NewLogger(level, format string) *Logger {
	return newLogger(os.Stdout, level, format)
}

func newLogger(out io.Writer, level, format string) *Logger {
	logger := logrus.New()
	logger.Out = out

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
			PadLevelText:  true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			PrettyPrint: false,
		})
	}

	return &Logger{logger: logger, ctx: context.Background()}
}

// Discard returns a logger that writes nothing, for tests.
func Discard() *Logger {
	return newLogger(io.Discard, "panic", "json")
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{logger: l.logger, fields: merged, ctx: l.ctx}
}

// WithContext binds ctx to the entries written by the returned logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{logger: l.logger, fields: l.fields, ctx: ctx}
}

// Debug logs a debug-level message.
func (l *Logger) Debug(msg string, fields ...Fields) {
	l.logWithFields(logrus.DebugLevel, msg, fields...)
}

// Info logs an info-level message.
func (l *Logger) Info(msg string, fields ...Fields) {
	l.logWithFields(logrus.InfoLevel, msg, fields...)
}

// Warn logs a warn-level message.
func (l *Logger) Warn(msg string, fields ...Fields) {
	l.logWithFields(logrus.WarnLevel, msg, fields...)
}

// Error logs an error-level message.
func (l *Logger) Error(msg string, fields ...Fields) {
	l.logWithFields(logrus.ErrorLevel, msg, fields...)
}

// Fatal logs a fatal-level message and exits the application.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.logWithFields(logrus.FatalLevel, msg, fields...)
	os.Exit(1)
}

func (l *Logger) logWithFields(level logrus.Level, msg string, fields ...Fields) {
	entry := l.logger.WithContext(l.ctx)
	if len(l.fields) > 0 {
		entry = entry.WithFields(l.fields)
	}
	for _, field := range fields {
		entry = entry.WithFields(field)
	}
	entry.Log(level, msg)
}
