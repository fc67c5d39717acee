package chronos

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Level gates messages delivered to the log callback.
type Level int

const (
	LogNone Level = iota
	LogError
	LogWarn
	LogInfo
	LogDebug
)

func (l Level) String() string {
	switch l {
	case LogError:
		return "ERR"
	case LogWarn:
		return "WRN"
	case LogInfo:
		return "INF"
	case LogDebug:
		return "DBG"
	}
	return "---"
}

// ParseLevel accepts the names used in config files, eg. "debug".
func ParseLevel(s string) (Level, error) {
	switch s {
	case "none", "off", "":
		return LogNone, nil
	case "error", "err":
		return LogError, nil
	case "warn", "warning":
		return LogWarn, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	}
	return LogNone, fmt.Errorf("unknown log level %q", s)
}

// LogFunc receives engine diagnostics. Never called from Tick or Process.
type LogFunc func(level Level, msg string)

// ZerologSink routes engine diagnostics to a zerolog logger.
func ZerologSink(l zerolog.Logger) LogFunc {
	return func(level Level, msg string) {
		var ev *zerolog.Event
		switch level {
		case LogError:
			ev = l.Error()
		case LogWarn:
			ev = l.Warn()
		case LogInfo:
			ev = l.Info()
		default:
			ev = l.Debug()
		}
		ev.Str("component", "engine").Msg(msg)
	}
}

func (e *Engine) logf(level Level, format string, a ...interface{}) {
	if e.logFn == nil || level > e.logLevel || level == LogNone {
		return
	}
	e.logFn(level, fmt.Sprintf(format, a...))
}
