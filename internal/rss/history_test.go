package rss

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLoadMissingFile(t *testing.T) {
	t.Parallel()

	h := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	videos, err := h.Load()
	require.NoError(t, err)
	assert.Nil(t, videos)
}

func TestHistorySaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "history.json")
	h := NewHistory(path)

	want := []Video{
		{ID: "abc123", Title: "Market outlook", URL: "https://www.youtube.com/watch?v=abc123"},
		{ID: "def456", Title: "Selling everything"},
	}
	require.NoError(t, h.Save(want))

	got, err := h.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryLoadRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewHistory(path).Load()
	assert.Error(t, err)
}
