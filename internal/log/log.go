package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options select the level and output format of a logger.
type Options struct {
	Level  string // debug, info, warn, error; anything else means info
	Format string // console or json
	Out    io.Writer
}

// New returns a logger tagged with module.
func New(module string, opts Options) zerolog.Logger {
	w := opts.Out
	if w == nil {
		w = os.Stderr
	}
	if opts.Format != "json" {
		w = consoleWriter(w)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("module", module).
		Logger()
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	out := zerolog.ConsoleWriter{
		Out:           w,
		TimeFormat:    "15:04:05",
		PartsOrder:    []string{"time", "level", "module", "message"},
		FieldsExclude: []string{"module"},
	}

	out.FormatPartValueByName = func(i any, s string) string {
		if s == "module" && i != nil {
			return strings.ToUpper(fmt.Sprintf("%s", i))
		}
		return ""
	}

	return out
}
