package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// Logger is the structured logging contract used across the toolkit.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Err attaches err under the "error" key. A nil error yields an empty field
// that is skipped when the entry is written.
func Err(err error) Field {
	if err == nil {
		return Field{}
	}
	return Field{Key: "error", Value: err.Error()}
}

const maxValueLen = 100

type Option func(*options)

type options struct {
	writer io.Writer
}

// WithWriter redirects output, mostly for tests.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// SlogLogger writes JSON lines through log/slog.
type SlogLogger struct {
	logger *slog.Logger
}

// New builds a JSON logger filtering below level. Unknown levels fall back
// to info.
func New(level string, opts ...Option) *SlogLogger {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	writer := cfg.writer
	if writer == nil {
		writer = os.Stdout
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &SlogLogger{logger: slog.New(handler)}
}

// ParseLevel maps a level name onto a slog level. Numeric levels in the
// range -1..5 are accepted as well, with -1 and 0 meaning debug.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "-1", "0":
		return slog.LevelDebug
	case "info", "1", "2":
		return slog.LevelInfo
	case "warn", "warning", "3":
		return slog.LevelWarn
	case "error", "4", "5":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *SlogLogger) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *SlogLogger) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *SlogLogger) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields)
}

// With returns a child logger that always carries fields.
func (l *SlogLogger) With(fields ...Field) *SlogLogger {
	if l == nil || l.logger == nil {
		return l
	}
	return &SlogLogger{logger: l.logger.With(toArgs(fields)...)}
}

// SetDefault installs the logger as the process wide slog default.
func (l *SlogLogger) SetDefault() {
	if l == nil || l.logger == nil {
		return
	}
	slog.SetDefault(l.logger)
}

func (l *SlogLogger) log(level slog.Level, msg string, fields []Field) {
	if l == nil || l.logger == nil {
		return
	}
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, msg, toArgs(fields)...)
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		args = append(args, f.Key, sanitizeValue(f.Value))
	}
	return args
}

// sanitizeValue truncates long strings so header values and bodies do not
// end up verbatim in the log.
func sanitizeValue(v any) any {
	if s, ok := v.(string); ok && len(s) > maxValueLen {
		cut := maxValueLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "...[truncated]"
	}
	return v
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}

// Nop discards everything.
func Nop() Logger { return nopLogger{} }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
