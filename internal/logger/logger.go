// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is an alias so callers need not import log/slog.
type Level = slog.Level

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// EnvLevel names the environment variable consulted when no level is given.
const EnvLevel = "LOG_LEVEL"

var programLevel = new(slog.LevelVar)

// Options selects the handler and level.
type Options struct {
	Level  string // trace|debug|info|warn|error; empty falls back to LOG_LEVEL, then info
	Format string // text|json; empty means text
	Output io.Writer
}

// New builds a logger without touching the process default.
func New(opts Options) (*slog.Logger, error) {
	levelStr := opts.Level
	if levelStr == "" {
		levelStr = os.Getenv(EnvLevel)
	}
	level := LevelInfo
	if levelStr != "" {
		var err error
		if level, err = ParseLevel(levelStr); err != nil {
			return nil, err
		}
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	lv := new(slog.LevelVar)
	lv.Set(level)
	handlerOpts := &slog.HandlerOptions{Level: lv}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		h = slog.NewTextHandler(out, handlerOpts)
	case "json":
		h = slog.NewJSONHandler(out, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected text or json)", opts.Format)
	}
	return slog.New(h), nil
}

// Setup builds a logger with New and installs it as slog.Default.
func Setup(opts Options) (*slog.Logger, error) {
	l, err := New(opts)
	if err != nil {
		return nil, err
	}
	if lv, err := ParseLevel(firstNonEmpty(opts.Level, os.Getenv(EnvLevel), "info")); err == nil {
		programLevel.Set(lv)
	}
	slog.SetDefault(l)
	return l, nil
}

// GetLevel returns the level last installed by Setup.
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
