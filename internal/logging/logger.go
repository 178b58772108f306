package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Options control the process-wide logger.
type Options struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // "json" (default) or "text"
	File   string // optional log file, mirrored alongside stdout
}

// Setup initializes the global logger once. Invalid levels fall back to
// INFO; an unopenable log file falls back to stdout only.
func Setup(opts Options) {
	once.Do(func() {
		var out io.Writer = os.Stdout
		if opts.File != "" {
			f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err == nil {
				out = io.MultiWriter(os.Stdout, f)
			}
		}

		hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
		var handler slog.Handler
		if strings.EqualFold(opts.Format, "text") {
			handler = slog.NewTextHandler(out, hopts)
		} else {
			handler = slog.NewJSONHandler(out, hopts)
		}
		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the configured logger, or a default one if Setup hasn't run.
func Get() *slog.Logger {
	if logger == nil {
		Setup(Options{})
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// Info logs at INFO level.
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { Get().Error(msg, args...) }
