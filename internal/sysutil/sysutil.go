// Package sysutil holds process bootstrap helpers: the zerolog setup used by
// the server entry point and a few environment parsing utilities.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
// Unknown values fall back to info.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// NewLogger builds the process logger writing to w (os.Stderr when nil).
// With pretty set the output is human-readable console text instead of JSON.
// Every entry carries a timestamp and the service name.
func NewLogger(w io.Writer, pretty bool, service string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}

// SetupLogging applies level, builds the logger and installs it as the
// global log.Logger.
func SetupLogging(level string, pretty bool, service string) zerolog.Logger {
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	l := NewLogger(os.Stderr, pretty, service)
	log.Logger = l
	return l
}

// IsTruthy reports whether an environment variable string should be considered true.
// Accepted values (case-insensitive): "1", "true", "yes", "y", "on".
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first non-blank string from a variadic list.
// If all values are blank, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
