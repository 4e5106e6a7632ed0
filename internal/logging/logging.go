// Package logging builds the zap loggers used throughout redmargin.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrInvalidLevel is returned for an unrecognized level name.
var ErrInvalidLevel = errors.New("invalid log level")

// ErrInvalidFormat is returned for an unrecognized output format.
var ErrInvalidFormat = errors.New("invalid log format")

// Format names.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects level, encoding and destination.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string

	// Format is console or json.
	Format string

	// File receives output when set. Otherwise output goes to stderr.
	File string
}

// ParseLevel converts a level name. The empty string means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
	}
}

// New builds a logger. The returned cleanup flushes buffered entries and
// closes the log file.
func New(cfg Config) (*zap.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "", FormatConsole:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidFormat, cfg.Format)
	}

	sink := zapcore.Lock(os.Stderr)
	closeFile := func() {}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sink = zapcore.Lock(f)
		closeFile = func() { _ = f.Close() }
	}

	logger := zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller())
	cleanup := func() {
		_ = logger.Sync()
		closeFile()
	}
	return logger, cleanup, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
