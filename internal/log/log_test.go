package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud", Format: "text"})
	assert.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, _, err := New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNewWithFileAppender(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strix.log")

	logger, closeFn, err := New(Config{
		Level:  "debug",
		Format: "json",
		File:   FileConfig{Enabled: true, Path: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	logger.WithField("component", "test").Info("hello")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestFileAppenderRequiresPath(t *testing.T) {
	_, _, err := New(Config{Level: "info", Format: "text", File: FileConfig{Enabled: true}})
	assert.Error(t, err)
}

func TestNopLoggerChains(t *testing.T) {
	l := Nop()
	// Must not panic, whatever is chained.
	l.WithField("k", 1).WithError(nil).WithFields(map[string]interface{}{"a": "b"}).Info("ignored")
}
