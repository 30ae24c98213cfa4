// Package logging builds the process logger.
//
// Levels follow the config vocabulary (trace, debug, info, notice, warn,
// warning, error, alert). zerolog has no notice or alert level: notice logs
// at info, alert logs at error with severity=alert so alerts can be told
// apart from ordinary errors downstream.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/pinbot/internal/config"
)

// SeverityAlert tags events that need an operator's attention.
const SeverityAlert = "alert"

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "notice":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "alert":
		return zerolog.ErrorLevel, nil
	case "":
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New returns a logger configured from cfg. Console output always goes to
// stderr; when cfg.Path names a file, entries are also appended there. The
// returned Closer releases the file and must be called on shutdown.
func New(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	return newWithStderr(cfg, os.Stderr)
}

func newWithStderr(cfg config.LoggingConfig, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var console io.Writer = stderr
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}

	out := console
	var closer io.Closer = nopCloser{}
	if cfg.Path != "" && cfg.Path != "-" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file %s: %w", cfg.Path, err)
		}
		out = zerolog.MultiLevelWriter(console, f)
		closer = f
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Alert starts an error-level event tagged severity=alert.
func Alert(log *zerolog.Logger) *zerolog.Event {
	return log.Error().Str("severity", SeverityAlert)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
