// Package logging builds the process-wide zerolog.Logger. Every
// component derives its own child logger from this base via
// .With().Str("component", ...).Logger(), per the convention used
// throughout this module.
package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/config"
)

// New builds the base logger: pretty console output in development,
// structured JSON otherwise, with the level set from cfg.
func New(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && cfg.LogLevel == "" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
