package log

import "log/slog"

// LevelTrace sits below slog.LevelDebug for full data dumps.
const LevelTrace = slog.Level(-8)

// Verbosity level constants for -v=N.
const (
	VerbosityError = 0 // Errors only (quiet)
	VerbosityWarn  = 1 // + Warnings (report collisions, esbuild warnings)
	VerbosityInfo  = 2 // + Info (build size report, emit summary)
	VerbosityDebug = 3 // + Debug (per-asset writes, config layers)
	VerbosityTrace = 4 // + Trace (hook calls, raw esbuild output)
)

// VerbosityToLevel maps -v=N to a slog level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelToVerbosity maps a slog level back to -v=N.
func LevelToVerbosity(l slog.Level) int {
	switch {
	case l >= slog.LevelError:
		return VerbosityError
	case l >= slog.LevelWarn:
		return VerbosityWarn
	case l >= slog.LevelInfo:
		return VerbosityInfo
	case l >= slog.LevelDebug:
		return VerbosityDebug
	default:
		return VerbosityTrace
	}
}

// LevelName returns the display name for a level, including TRACE.
func LevelName(l slog.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.String()
}
