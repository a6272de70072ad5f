// Package logging builds the process-wide zerolog.Logger used by
// cmd/ldapd and threaded into internal/session, internal/handler, and
// internal/httpapi.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures the process logger.
type Options struct {
	// Level is one of zerolog's level strings ("debug", "info", "warn",
	// "error"); an unrecognised value falls back to "info".
	Level string
	// Pretty switches to zerolog's human-readable console writer, for
	// local development; production deployments leave this false and
	// get newline-delimited JSON suitable for a log collector.
	Pretty bool
}

// New builds a Logger bound to stderr whose only context field is a
// timestamp; no per-connection or per-request fields are attached.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
