// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config captures options for the base logger.
type Config struct {
	Level  string    // "debug", "info", ... ; empty means info
	Format string    // "console" or "json"; empty means console
	File   string    // optional rotating log file; when set, Output is ignored
	Output io.Writer // defaults to os.Stderr

	MaxSizeMB  int // rotation size for File, default 10
	MaxBackups int // default 3
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
	file *lumberjack.Logger
)

// Configure replaces the base logger. It may be called again, e.g. once flags are parsed.
func Configure(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	zerolog.TimeFieldFormat = time.RFC3339

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	var lj *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		lj = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    valueOr(cfg.MaxSizeMB, 10),
			MaxBackups: valueOr(cfg.MaxBackups, 3),
		}
		w = lj
	}

	switch cfg.Format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: cfg.File != ""}
	case "json":
	default:
		return fmt.Errorf("unsupported log format %q (valid: console|json)", cfg.Format)
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
	}
	file = lj
	base = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return nil
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

func valueOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
