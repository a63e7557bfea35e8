package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	req := require.New(t)

	var file, console bytes.Buffer

	log := New(Config{File: &file, Console: &console})
	log.Debug("hidden")
	log.Info("scan started", "root", "/c")
	log.Warn("skipping unreadable entry", "path", "/c/locked")

	req.NotContains(file.String(), "hidden")
	req.Contains(file.String(), "scan started")
	req.Contains(file.String(), "path=/c/locked")

	req.NotContains(console.String(), "scan started")
	req.Contains(console.String(), "skipping unreadable entry")
}

func TestNew_Debug(t *testing.T) {
	var console bytes.Buffer

	log := New(Config{Console: &console, Debug: true})
	log.With("scan", "1").Debug("excluding path", "path", "/c/Windows")

	require.Contains(t, console.String(), "excluding path")
	require.Contains(t, console.String(), "scan=1")
}

func TestNew_NoWriters(t *testing.T) {
	log := New(Config{})
	log.Error("dropped")

	require.False(t, log.Enabled(t.Context(), 12))
}

func TestOpen_Appends(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "logs", "diskcheck_20261019.log")

	for _, line := range []string{"first\n", "second\n"} {
		f, err := Open(path)
		req.NoError(err)
		_, err = f.WriteString(line)
		req.NoError(err)
		req.NoError(f.Close())
	}

	data, err := os.ReadFile(path)
	req.NoError(err)
	req.Equal("first\nsecond\n", string(data))
}
