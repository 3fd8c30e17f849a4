// Package logger provides structured JSON logging for natibo services.
// It wraps log/slog with typed fields, level parsing and context propagation.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses a string into a Level. Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field   { return Field{Key: key, Value: value} }
func Any(key string, value any) Field     { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field rendered as a string, e.g. "1.5s".
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Domain field helpers.
func CourseID(id string) Field      { return String("course_id", id) }
func DayID(id string) Field         { return String("day_id", id) }
func DayNumber(n int) Field         { return Int("day_number", n) }
func Cursor(c int) Field            { return Int("cursor", c) }
func Language(code string) Field    { return String("language", code) }
func Book(name string) Field        { return String("book", name) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }

// RequestIDKey is the field key for request tracing.
const RequestIDKey = "request_id"

func toAttrs(fields []Field) []any {
	attrs := make([]any, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// Logger writes one JSON object per entry.
type Logger struct {
	sl    *slog.Logger
	level Level
}

// Options configures the logger.
type Options struct {
	Output    io.Writer
	Level     Level
	AddSource bool
}

// New creates a new Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	h := slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
		Level:     opts.Level.slog(),
		AddSource: opts.AddSource,
	})
	return &Logger{sl: slog.New(h), level: opts.Level}
}

// Default creates an info-level logger writing to stdout.
func Default() *Logger {
	return New(Options{Level: LevelInfo})
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: LevelError})
}

// With returns a new Logger with the given fields added to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{sl: l.sl.With(toAttrs(fields)...), level: l.level}
}

// WithRequestID returns a logger with the request ID field added.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

// Slog exposes the underlying slog logger for components that take one.
func (l *Logger) Slog() *slog.Logger { return l.sl }

// Level returns the minimum level.
func (l *Logger) Level() Level { return l.level }

func (l *Logger) Debug(msg string, fields ...Field) { l.sl.Debug(msg, toAttrs(fields)...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.sl.Info(msg, toAttrs(fields)...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.sl.Warn(msg, toAttrs(fields)...) }
func (l *Logger) Error(msg string, fields ...Field) { l.sl.Error(msg, toAttrs(fields)...) }

// Fatal logs an error and exits the program.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.sl.Error(msg, toAttrs(fields)...)
	os.Exit(1)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or returns a default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}
