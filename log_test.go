package chronos

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]Level{
		"":        LogNone,
		"off":     LogNone,
		"err":     LogError,
		"warning": LogWarn,
		"info":    LogInfo,
		"debug":   LogDebug,
	} {
		l, err := ParseLevel(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, l, s)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "WRN", LogWarn.String())
}

func TestZerologSink(t *testing.T) {
	var buf bytes.Buffer
	e := newTestEngine(WithLogger(zerolog.New(&buf)), WithLogLevel(LogDebug))
	require.False(t, e.Eval("out = missing(1)", true))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"component":"engine"`)
	assert.Contains(t, buf.String(), "unknown function")
	assert.Contains(t, buf.String(), `"level":"info"`)
}
