// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats accepted by Setup.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseLevel maps a level name to a zerolog level. It accepts zerolog's
// names plus "off" and "warning"; empty or unknown names are info.
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "off":
		return zerolog.Disabled
	case "warning":
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Setup returns a timestamped logger writing to stderr.
func Setup(level, format string) zerolog.Logger {
	return New(os.Stderr, level, format)
}

// New returns a timestamped logger writing to w, as JSON or through the
// console writer.
func New(w io.Writer, level, format string) zerolog.Logger {
	out := w
	if strings.ToLower(format) != FormatJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}
