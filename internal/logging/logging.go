// Package logging builds the process logger.
//
// Output goes to stderr because stdout carries the MCP protocol. The console
// format is human readable; "json" emits one JSON object per line. A file
// sink, rotated by size, can be added alongside.
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

// Options selects level, format and an optional log file.
type Options struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// New returns a logger writing to stderr, plus File when set.
func New(opts Options) (zerolog.Logger, error) {
	return newLogger(opts, os.Stderr)
}

func newLogger(opts Options, stderr io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var console io.Writer
	switch strings.ToLower(opts.Format) {
	case "", "console", "text":
		console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339, NoColor: true}
	case "json":
		console = stderr
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", opts.Format)
	}

	writers := []io.Writer{console}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("service", "parkscan").
		Logger(), nil
}
