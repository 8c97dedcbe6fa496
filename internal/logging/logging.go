package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the application logger. Output is a human-readable
// console stream; debug turns on per-step pipeline events.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
