// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DevEnv is the environment name that selects human readable console output.
const DevEnv = "DEV"

// Setup points the global logger at stderr, as console output in DEV and as
// JSON elsewhere, and sets the global level. An unknown level is an error and
// leaves the level at info.
func Setup(env, level string) error {
	return SetupWriter(os.Stderr, env, level)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, env, level string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(env, DevEnv) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if err == nil {
			return nil
		}
		return errors.Wrapf(err, "[logging.Setup] level %q", level)
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}
