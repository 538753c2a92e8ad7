package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"storefront-backend/config"
)

// New builds the process logger for the given environment.
func New(env string) zerolog.Logger {
	return newWithWriter(env, os.Stdout)
}

func newWithWriter(env string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	switch env {
	case config.EnvLocal:
		console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		return zerolog.New(console).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	case config.EnvDev:
		return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	default:
		return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
}
