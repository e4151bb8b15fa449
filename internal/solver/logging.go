package solver

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// zerologLevel maps the solver's verbose scale onto zerolog levels. Outer
// summaries log at info, inner-loop progress at debug, full/debug detail at
// trace.
func (v VerboseLevel) zerologLevel() zerolog.Level {
	switch v {
	case VerboseOff:
		return zerolog.Disabled
	case VerboseWarning:
		return zerolog.WarnLevel
	case VerboseOuter:
		return zerolog.InfoLevel
	case VerboseInner:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// NewLogger builds the run logger for the configured verbosity. A nil
// writer silences output regardless of level.
func NewLogger(verbose VerboseLevel, w io.Writer) zerolog.Logger {
	if w == nil {
		return zerolog.New(io.Discard).Level(zerolog.Disabled)
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(console).Level(verbose.zerologLevel()).With().Timestamp().Logger()
}

// phaseLogger tags a child logger with the phase name so interleaved phase
// output stays attributable.
func phaseLogger(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
