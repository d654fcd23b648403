// Package logging provides structured logging for quarry built on log/slog.
//
// Components obtain a scoped logger via WithComponent so every record carries
// the subsystem it came from (builder, devserver, watcher, ...).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with component scoping.
type Logger struct {
	logger    *slog.Logger
	component string
}

// Config holds logger construction options.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: os.Stderr,
	}
}

// New creates a structured logger.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return &Logger{logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger scoped to a subsystem name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger:    l.logger.With("component", component),
		component: component,
	}
}

// With returns a logger with additional key/value fields attached.
func (l *Logger) With(fields ...any) *Logger {
	return &Logger{
		logger:    l.logger.With(fields...),
		component: l.component,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...any) {
	l.logger.Debug(msg, fields...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, fields ...any) {
	l.logger.Info(msg, fields...)
}

// Warn logs a warning, attaching err when non-nil.
func (l *Logger) Warn(err error, msg string, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	l.logger.Warn(msg, fields...)
}

// Error logs an error, attaching err when non-nil.
func (l *Logger) Error(err error, msg string, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	l.logger.Error(msg, fields...)
}
