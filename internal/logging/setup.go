package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures the global logger
type Options struct {
	Level   string    // zerolog level name; "" means warn
	Verbose bool      // forces debug
	Writer  io.Writer // defaults to stderr
	NoColor bool
}

// Setup configures the global zerolog logger for one invocation and returns
// the invocation id attached to every event
func Setup(opts Options) (string, error) {
	level := zerolog.WarnLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return "", fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	id := uuid.NewString()
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    opts.NoColor,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Str("invocation_id", id).Logger()

	return id, nil
}
