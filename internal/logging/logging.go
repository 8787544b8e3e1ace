// Package logging builds the process logger. Every handler it returns
// redacts secrets before formatting.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/catonblt/novelbuddies/internal/security"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config selects the level, format and an optional log file.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives a copy of every record in append mode.
	File string `yaml:"file"`
}

func (c *Config) defaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatText
	}
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	c.defaults()
	var errs []error
	if _, err := ParseLevel(c.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Format != FormatText && c.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("logging: unknown format %q (want text or json)", c.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel accepts the slog level names, case-insensitively, plus "warning".
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
	return lvl, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to w and, when cfg.File is set, to that
// file. The returned closer releases the file. A nil redactor gets the
// default patterns.
func New(cfg Config, w io.Writer, redactor *security.Redactor) (*slog.Logger, io.Closer, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if redactor == nil {
		redactor = security.NewRedactor()
	}
	level, _ := ParseLevel(cfg.Level)

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", cfg.File, err)
		}
		w = io.MultiWriter(w, f)
		closer = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if cfg.Format == FormatJSON {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), closer, nil
}
