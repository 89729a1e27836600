package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleHonoursVerbosity(t *testing.T) {
	var quiet, verbose bytes.Buffer

	log, done, err := New(Options{Console: &quiet})
	require.NoError(t, err)
	log.Info("stage started", "stage", "base")
	log.V(1).Info("action started", "action", "installBaseSystem")
	require.NoError(t, done())

	assert.Contains(t, quiet.String(), "stage started")
	assert.NotContains(t, quiet.String(), "action started")

	log, done, err = New(Options{Console: &verbose, Verbose: true})
	require.NoError(t, err)
	log.V(1).Info("action started", "action", "installBaseSystem")
	require.NoError(t, done())

	assert.Contains(t, verbose.String(), "action started")
}

func TestNew_FileIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "archer.log")

	log, done, err := New(Options{File: path})
	require.NoError(t, err)
	log.V(1).Info("action succeeded", "action", "partition/createLabel")
	require.NoError(t, done())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	require.NotEmpty(t, line)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "action succeeded", entry["msg"])
	assert.Equal(t, "partition/createLabel", entry["action"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNew_NoSinks(t *testing.T) {
	log, done, err := New(Options{})
	require.NoError(t, err)
	log.Info("dropped")
	assert.NoError(t, done())
}
