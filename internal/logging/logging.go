package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Environment overrides.
const (
	EnvLevel     = "REACTIVE_LOG_LEVEL"
	EnvTimestamp = "REACTIVE_LOG_TIMESTAMP"
	EnvNoColor   = "REACTIVE_LOG_NOCOLOR"
)

type Options struct {
	// Level is a zerolog level name. Empty means "warn".
	Level string

	// Console writes human readable lines instead of JSON.
	Console bool

	NoColor   bool
	Timestamp bool

	Out io.Writer
}

// New builds a logger from opts.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), err
		}
		level = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    opts.NoColor,
			TimeFormat: time.RFC3339,
		}
	}

	ctx := zerolog.New(out).Level(level).With()
	if opts.Timestamp {
		ctx = ctx.Timestamp()
	}

	return ctx.Logger(), nil
}

// FromEnv applies the environment overrides to opts and builds the logger.
func FromEnv(opts Options) (zerolog.Logger, error) {
	if v, ok := os.LookupEnv(EnvLevel); ok && v != "" {
		opts.Level = v
	}
	if v, ok := os.LookupEnv(EnvTimestamp); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.Timestamp = b
		}
	}
	if v, ok := os.LookupEnv(EnvNoColor); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.NoColor = b
		}
	}

	return New(opts)
}
