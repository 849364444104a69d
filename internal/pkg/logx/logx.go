/*
Package logx provides a structured logging wrapper based on zerolog.

Init selects JSON or console output for the process. Components take a tagged child
logger from Component; one-off messages go through Info, Warn and Error.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global zerolog instance writing to out.
// Development: Debug level, ConsoleWriter (human-readable format).
// Production: Info level, JSON lines.
// All logs include a timestamp and caller information.
func Init(out io.Writer, isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(out).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !isTerminal(out),
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// isTerminal reports whether out is an interactive terminal. Log files get no color codes.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// emit writes e with fields given as alternating keys and values. An odd field count
// would make zerolog misalign every pair, so the fields are dropped with a warning.
func emit(e *zerolog.Event, msg string, fields []any) {
	if len(fields)%2 != 0 {
		Logger().Warn().Int("fields_count", len(fields)).Str("dropped_for", msg).Msg("Odd number of log fields")
		fields = nil
	}
	// Skip emit and the exported helper so the caller is the one reported.
	e.Fields(fields).CallerSkipFrame(2).Msg(msg)
}

func Info(msg string, fields ...any) {
	emit(Logger().Info(), msg, fields)
}

func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), msg, fields)
}

// Error logs err with msg at the Error level.
func Error(err error, msg string, fields ...any) {
	emit(Logger().Error().Err(err), msg, fields)
}
