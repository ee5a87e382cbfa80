// Package logging provides the process-wide structured logger.
package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// L returns the process-wide logger, initializing it on first use from
// REDISD_LOG_LEVEL (debug|info|warn|error, default info).
func L() *zerolog.Logger {
	once.Do(func() {
		level := zerolog.InfoLevel
		if raw := strings.ToLower(os.Getenv("REDISD_LOG_LEVEL")); raw != "" {
			if parsed, err := zerolog.ParseLevel(raw); err == nil {
				level = parsed
			}
		}
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	})
	return &logger
}

// SetLevel overrides the logger's level; used by tests that want quiet output.
func SetLevel(level zerolog.Level) {
	L()
	logger = logger.Level(level)
}
