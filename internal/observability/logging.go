package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. Dev mode switches to human
// readable console output at debug level; otherwise JSON at info.
func NewLogger(service string, dev bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Str("service", service).Logger()
	}

	return zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().Timestamp().Str("service", service).Logger()
}
