// Package logging builds the zerolog logger shared by every component.
//
// The TUI owns the terminal, so interactive sessions log to a size-rotated
// file. Non-interactive commands may log to stderr with the console writer.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the destination and level.
type Options struct {
	// File is the log path. Empty disables file output.
	File string
	// Level is debug, info, warn or error. Anything else means info.
	Level string
	// Console writes human-readable output to stderr instead of File.
	Console bool
	// Service is stamped on every entry.
	Service string
}

const (
	maxSizeMB  = 16
	maxBackups = 3
	maxAgeDays = 14
)

// New returns a configured logger and a closer for its output. The closer is
// never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level := ParseLevel(opts.Level)
	service := opts.Service
	if service == "" {
		service = "shoplist"
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.Console:
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	case strings.TrimSpace(opts.File) != "":
		path := strings.TrimSpace(opts.File)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return zerolog.Nop(), closer, err
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		out, closer = rotator, rotator
	default:
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
	return logger, closer, nil
}

// ParseLevel maps a config string to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
