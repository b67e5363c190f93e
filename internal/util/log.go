// Package util holds small process-level helpers shared by the binaries.
package util

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a JSON logger on stderr; stdout is reserved for alert lines.
func NewLogger(level string) zerolog.Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo builds a timestamped logger writing to w, falling back to info on unknown levels.
func NewLoggerTo(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
