package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger from environment variables.
// POSTRENDER_LOG_LEVEL controls the level: debug, info, warn, error (default: info).
// POSTRENDER_LOG_FORMAT selects console or json output; json is the default
// inside Lambda so CloudWatch receives one event per line.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("POSTRENDER_LOG_LEVEL")))

	format := os.Getenv("POSTRENDER_LOG_FORMAT")
	if format == "" && os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		format = "json"
	}
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// log.Ctx falls back to the global logger when no request logger is attached.
	zerolog.DefaultContextLogger = &log.Logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
