package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, LevelInfo)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	l.Warning("careful %s", "now")
	l.Error("broken %v", "pipe")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "INFO    ")
	assert.Contains(t, out.String(), "shown 2")
	assert.Contains(t, out.String(), "WARNING ")
	assert.Contains(t, out.String(), "careful now")
	assert.Contains(t, errOut.String(), "ERROR   ")
	assert.Contains(t, errOut.String(), "broken pipe")
	assert.NotContains(t, out.String(), "broken pipe")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarning, ParseLevel("warn"))
	assert.Equal(t, LevelWarning, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestNewStdWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "analyzer.log")
	l, err := NewStd(LevelDebug, path)
	require.NoError(t, err)
	l.Debug("written to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "written to file"))
}

func TestNilAndDiscard(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("nothing") })
	assert.NoError(t, l.Close())
	assert.NotPanics(t, func() { Discard().Error("dropped") })
}
