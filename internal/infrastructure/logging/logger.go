package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/decenza/de1-sim-core/internal/infrastructure/config"
)

// serviceName tags every record so simulator logs can be filtered out of a
// shared aggregator.
const serviceName = "de1simd"

// Logger is the simulator's structured logger. It embeds *slog.Logger, so
// call sites use the usual Debug/Info/Warn/Error with key-value pairs; every
// record carries the service name and build version as default attributes.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging config section: level and format
// (json or text) come from the config, output goes to stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	return newLogger(cfg, version, selectOutput(cfg.Output))
}

// newLogger is the writer-injected core, shared with tests.
func newLogger(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func selectOutput(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a config level string onto slog. Unrecognised values fall
// back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger carrying extra default attributes, typically
// a component tag:
//
//	engineLog := logger.With("component", "engine")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before the config file is loaded:
// JSON to stdout at info level, version "dev". Config load failures are
// reported through it.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
