package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesTerminalAndJSON(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	var out bytes.Buffer

	l, err := NewLoggerAt(dir, &out)
	require.NoError(t, err)
	l.LogBooth("reserve", "booth-1", "reserved by ex-1")
	l.Close()

	assert.Contains(t, out.String(), "[BOOTH")
	assert.Contains(t, out.String(), "[reserve] booth-1 - reserved by ex-1")

	files, err := filepath.Glob(filepath.Join(dir, "eventsphere-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Category == "BOOTH" {
			found = true
			assert.Equal(t, "INFO", entry.Level)
			assert.Equal(t, "logger_test.go", entry.File)
		}
	}
	assert.True(t, found)
}

func TestLoggerLevelFilter(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	l, err := NewLoggerAt("", &out)
	require.NoError(t, err)

	l.SetLevel(WARN)
	l.Info("APP", "hidden")
	l.Warn("APP", "shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, INFO, ParseLevel("whatever"))
}

func TestNopLoggerIsSilent(t *testing.T) {
	l := NewNopLogger()
	l.Error("APP", "nothing")
	l.Close()
}
