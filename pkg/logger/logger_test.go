package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		" error ": ERROR,
		"bogus":   INFO,
		"":        INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := New("TEST", &buf)
	l.SetLevel(WARN)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("shown %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] [TEST] shown 2")
	assert.Contains(t, out, "[ERROR] [TEST] shown 3")
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	l := New("FILE", nil)
	require.NoError(t, l.SetFile(path))

	l.Info("persisted line")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] [FILE] persisted line")
}
