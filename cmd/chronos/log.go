package main

import (
	"io"

	"github.com/fatih/color"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"chronos"
)

// newLogger writes human readable lines tagged with a per run session id,
// so interleaved logs from several instances can be told apart.
func newLogger(w io.Writer, level chronos.Level) zerolog.Logger {
	session := "--------"
	if id, err := uuid.NewV4(); err == nil {
		session = id.String()[:8]
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: color.NoColor}
	return zerolog.New(out).Level(zerologLevel(level)).With().
		Timestamp().
		Str("session", session).
		Logger()
}

func zerologLevel(l chronos.Level) zerolog.Level {
	switch l {
	case chronos.LogNone:
		return zerolog.Disabled
	case chronos.LogError:
		return zerolog.ErrorLevel
	case chronos.LogWarn:
		return zerolog.WarnLevel
	case chronos.LogInfo:
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}
