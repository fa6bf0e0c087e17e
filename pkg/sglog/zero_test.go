package sglog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewZeroLoggerDefaultIsJSON(t *testing.T) {
	assert := assert.New(t)
	var buf bytes.Buffer

	logger := NewZeroLogger("", "info", false)
	l := logger.Output(&buf)
	l.Info().Msg("test message")

	out := buf.String()
	assert.Contains(out, `"level":"info"`)
	assert.Contains(out, `"message":"test message"`)
}

func TestZeroDefaultLevelIsInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, Zero.GetLevel())
}

func TestParseLevel(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		in  string
		exp zerolog.Level
	}

	for _, tt := range []tcase{
		{in: "debug", exp: zerolog.DebugLevel},
		{in: "info", exp: zerolog.InfoLevel},
		{in: "warning", exp: zerolog.WarnLevel},
		{in: "error", exp: zerolog.ErrorLevel},
		{in: "fatal", exp: zerolog.FatalLevel},
		{in: "disabled", exp: zerolog.Disabled},
		{in: "nonsense", exp: zerolog.InfoLevel},
	} {
		assert.Equal(tt.exp, parseLevel(tt.in), tt.in)
	}
}

func TestUpdateZeroLogLevel(t *testing.T) {
	assert := assert.New(t)
	prev := Zero
	defer func() { Zero = prev }()

	assert.NoError(UpdateZeroLogLevel("debug"))
	assert.Equal(zerolog.DebugLevel, Zero.GetLevel())
}

func TestLoggerWritesToFile(t *testing.T) {
	assert := assert.New(t)
	prev := Zero
	defer func() { Zero = prev }()

	path := filepath.Join(t.TempDir(), "router.log")
	ReloadLogger(path, "info", false)
	Zero.Info().Str("table", "t_order").Msg("routed")

	data, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Contains(string(data), `"table":"t_order"`)
}
