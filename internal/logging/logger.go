// Package logging configures the zerolog logger shared by streampanel.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Packages take a child of it through
// Component instead of logging to it directly.
var Logger zerolog.Logger

type ctxKey struct{}

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	Level string

	// Format is console or json.
	Format string

	// Output defaults to stderr.
	Output io.Writer

	// EnableCaller adds file:line to every entry.
	EnableCaller bool
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: os.Stderr}
}

// Init replaces the global logger and level.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	Logger = New(cfg)
}

// New builds a logger for cfg without touching global state.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if !strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		file, isFile := output.(*os.File)
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			// Log files are read with less; keep escape codes out of them.
			NoColor: isFile && file != os.Stderr && file != os.Stdout,
		}
	}

	ctx := zerolog.New(output).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// OpenFile opens path for appending, creating it and its directory. The
// panel owns the terminal while it runs, so its logs go to a file.
func OpenFile(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// Component returns a child of the global logger tagged with component.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithStream tags logger with the stream it acts on.
func WithStream(logger zerolog.Logger, streamID string) zerolog.Logger {
	return logger.With().Str("stream_id", streamID).Logger()
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by WithContext, or the global one.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return Logger
}

func init() {
	Init(DefaultConfig())
}
