package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config")

	l, err := New(Config{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	l.Info("session armed", "slot", "session_end_work")
	l.Debug("hidden outside debug mode")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "focus.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "session armed")
	assert.Contains(t, string(data), "slot=session_end_work")
	assert.NotContains(t, string(data), "hidden outside debug mode")
}

func TestNewDebugAlsoWritesStderr(t *testing.T) {
	var console bytes.Buffer
	l, err := New(Config{Dir: t.TempDir(), Debug: true, Stderr: &console})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	l.Debug("tick")
	assert.Contains(t, console.String(), "tick")
}

func TestNewInvalidDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(Config{Dir: file})
	assert.Error(t, err)
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	l := Discard()
	assert.Same(t, l, OrDiscard(l))

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Close())
}
