package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_server.log")

	log, err := New("info", "json", path)
	require.NoError(t, err)
	log.Info("room created")
	log.Debug("filtered out")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "room created")
	assert.NotContains(t, string(data), "filtered out")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", "json", "")
	assert.Error(t, err)
}
