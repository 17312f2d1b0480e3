package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LevelDebug LogLevel = LogLevel(slog.LevelDebug)
	LevelInfo  LogLevel = LogLevel(slog.LevelInfo)
	LevelWarn  LogLevel = LogLevel(slog.LevelWarn)
	LevelError LogLevel = LogLevel(slog.LevelError)
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level  LogLevel `json:"level"`
	Format string   `json:"format"` // "json" or "text"
	Output string   `json:"output"` // "stdout", "stderr", or file path
}

// DefaultLogConfig returns the configuration used when nothing is set.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: LevelInfo, Format: "json", Output: "stdout"}
}

// ParseLevel maps LOG_LEVEL values onto LogLevel; unknown values are info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging with context support
type Logger struct {
	slogger *slog.Logger
	level   *slog.LevelVar
	file    *os.File
}

// NewLogger creates a new structured logger
func NewLogger(config LogConfig) (*Logger, error) {
	l := &Logger{level: new(slog.LevelVar)}
	l.level.Set(slog.Level(config.Level))

	var writer io.Writer
	switch config.Output {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(config.Output), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		writer = f
	}

	opts := &slog.HandlerOptions{Level: l.level}
	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}
	l.slogger = slog.New(handler)
	return l, nil
}

// New wraps an existing writer; mostly useful in tests.
func New(w io.Writer, level LogLevel) *Logger {
	l := &Logger{level: new(slog.LevelVar)}
	l.level.Set(slog.Level(level))
	l.slogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l.level}))
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return New(io.Discard, LevelError) }

// SetLevel changes the minimum level at runtime (config hot reload).
func (l *Logger) SetLevel(level LogLevel) { l.level.Set(slog.Level(level)) }

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithContext returns a logger that tags entries with the request id found in ctx.
func (l *Logger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: l, ctx: ctx}
}

// WithComponent returns a logger with component information
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

type ContextLogger struct {
	logger    *Logger
	ctx       context.Context
	component string
}

type ComponentLogger struct {
	logger    *Logger
	component string
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(context.Background(), LevelDebug, msg, nil, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.log(context.Background(), LevelInfo, msg, nil, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(context.Background(), LevelWarn, msg, nil, fields)
}

func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.log(context.Background(), LevelError, msg, err, fields)
}

func (cl *ComponentLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(context.Background(), LevelDebug, msg, nil, cl.tag(fields))
}

func (cl *ComponentLogger) Info(msg string, fields ...Field) {
	cl.logger.log(context.Background(), LevelInfo, msg, nil, cl.tag(fields))
}

func (cl *ComponentLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(context.Background(), LevelWarn, msg, nil, cl.tag(fields))
}

func (cl *ComponentLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.log(context.Background(), LevelError, msg, err, cl.tag(fields))
}

// Ctx combines the component tag with request context.
func (cl *ComponentLogger) Ctx(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: cl.logger, ctx: ctx, component: cl.component}
}

func (cl *ComponentLogger) tag(fields []Field) []Field {
	return append(fields, String("component", cl.component))
}

func (cl *ContextLogger) tag(fields []Field) []Field {
	if cl.component == "" {
		return fields
	}
	return append(fields, String("component", cl.component))
}

func (cl *ContextLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(cl.ctx, LevelDebug, msg, nil, cl.tag(fields))
}

func (cl *ContextLogger) Info(msg string, fields ...Field) {
	cl.logger.log(cl.ctx, LevelInfo, msg, nil, cl.tag(fields))
}

func (cl *ContextLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(cl.ctx, LevelWarn, msg, nil, cl.tag(fields))
}

func (cl *ContextLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.log(cl.ctx, LevelError, msg, err, cl.tag(fields))
}

func (l *Logger) log(ctx context.Context, level LogLevel, msg string, err error, fields []Field) {
	if !l.slogger.Enabled(ctx, slog.Level(level)) {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)+3)
	if id := RequestIDFrom(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if level >= LevelWarn {
		if _, file, line, ok := runtime.Caller(2); ok {
			attrs = append(attrs, slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line)))
		}
	}
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	l.slogger.LogAttrs(ctx, slog.Level(level), msg, attrs...)
}

type ctxKey struct{}

// WithRequestID stores a request id for later log entries.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestIDFrom returns the request id stored by WithRequestID, if any.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field                 { return Field{Key: key, Value: value} }
func Int(key string, value int) Field                { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field            { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field        { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field              { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Time(key string, value time.Time) Field         { return Field{Key: key, Value: value} }
func Any(key string, value interface{}) Field        { return Field{Key: key, Value: value} }

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}
