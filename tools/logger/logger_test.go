package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "")

	log.Debug("hidden %d", 1)
	log.Info("hidden %d", 2)
	log.Warn("shown %d", 3)
	log.Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN shown 3")
	assert.Contains(t, out, "ERROR shown 4")
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "classroom").WithPrefix("board")

	log.Info("ready")

	require.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "[classroom/board] ready"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestDiscardDropsEverything(t *testing.T) {
	log := Discard()
	log.Error("nothing")
	assert.Equal(t, LevelError+1, log.minLevel)
}
