// Package logging builds the zerolog logger shared by the CLI and console.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log output goes.
type Options struct {
	Level string
	// File, when set, receives JSON logs through a rotating writer.
	File string
	// Console writes human-readable logs to Stderr. Ignored when File is set.
	Console bool
	// Stderr defaults to os.Stderr.
	Stderr io.Writer

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel accepts zerolog level names; an empty string means "info".
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// New returns a logger and a closer for any file it opened. Without a File
// and without Console the logger discards everything.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.File != "":
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
		}
		w, closer = lj, lj
	case opts.Console:
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	default:
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return logger, closer, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
