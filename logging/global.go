// Package logging wraps slog with a process-wide logger that writes text to
// the console and JSON to weekly rotating files.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/giygas/drugregistry/config"
)

// Options configures Init.
type Options struct {
	Dir            string    // empty disables file output
	Console        io.Writer // defaults to os.Stdout
	RetentionWeeks int
	MaxFileSize    int64
	ConsoleLevel   slog.Level
	FileLevel      slog.Level
}

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingFile
}

// Close releases the rotating file, if any.
func (s *LoggingService) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

var current atomic.Pointer[LoggingService]

// Init installs the global logger described by opts and returns it so the
// caller can close it on shutdown. When the log directory cannot be used the
// logger degrades to console only.
func Init(opts Options) *LoggingService {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	console := slog.NewTextHandler(opts.Console, &slog.HandlerOptions{Level: opts.ConsoleLevel})
	svc := &LoggingService{Logger: slog.New(console)}

	if opts.Dir != "" {
		rf, err := OpenRotatingFile(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if err != nil {
			svc.Logger.Error("Failed to initialize rotating logger, logging to console only", "error", err)
		} else {
			rf.StartPruning()
			file := slog.NewJSONHandler(rf, &slog.HandlerOptions{Level: opts.FileLevel})
			svc.Logger = slog.New(&fanoutHandler{handlers: []slog.Handler{console, file}})
			svc.file = rf
		}
	}

	if prev := current.Swap(svc); prev != nil {
		_ = prev.Close()
	}
	slog.SetDefault(svc.Logger)
	return svc
}

// InitLogger initializes the global logger with default levels and four
// weeks of retention. An empty logDir logs to the console only.
func InitLogger(logDir string) *LoggingService {
	return Init(Options{
		Dir:            logDir,
		RetentionWeeks: 4,
		MaxFileSize:    100 * 1024 * 1024,
		ConsoleLevel:   slog.LevelInfo,
		FileLevel:      GetFileLogLevel(),
	})
}

// Logger returns the global logger, falling back to slog's default.
func Logger() *slog.Logger {
	if svc := current.Load(); svc != nil && svc.Logger != nil {
		return svc.Logger
	}
	return slog.Default()
}

// GetConsoleLogLevel resolves the console level. An explicit LOG_LEVEL wins
// everywhere except in tests, which stay at error unless verbose is set.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the level for the rotating files; files keep everything.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// fanoutHandler writes each record to every handler that accepts its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
