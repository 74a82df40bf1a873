// Package logging builds the zerolog logger used for diagnostics.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// DefaultLevel is used when neither the command line nor the settings file names one
const DefaultLevel = "info"

// Options controls how diagnostics are written
type Options struct {
	Level string
	// Console renders human readable lines instead of JSON
	Console bool
	// NoColor disables ANSI colors in console mode
	NoColor bool
}

// New creates a logger writing to w
func New(w io.Writer, opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := w
	if opts.Console {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    opts.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// NewStderr creates the logger used by the CLI: console output on stderr,
// colored only when stderr is a terminal
func NewStderr(level string) (zerolog.Logger, error) {
	return NewConsole(os.Stderr, level)
}

// NewConsole writes human readable lines to w. Colors are used only when w is
// a terminal.
func NewConsole(w io.Writer, level string) (zerolog.Logger, error) {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return New(w, Options{
		Level:   level,
		Console: true,
		NoColor: noColor,
	})
}

// ParseLevel accepts zerolog level names case-insensitively; empty means DefaultLevel
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = DefaultLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}
