package archive

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsJSONLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir, "analysis")
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	events := []Event{
		{Type: "analysis", VideoID: "abc123", Sentiment: "UP", Trades: 1},
		{Type: "analysis", VideoID: "def456", Sentiment: "NEUTRAL", Skipped: true},
	}
	for _, e := range events {
		require.NoError(t, w.Write(e))
	}

	today := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(dir, "analysis-"+today+".jsonl")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}
	require.NoError(t, sc.Err())

	require.Len(t, got, 2)
	assert.Equal(t, "abc123", got[0].VideoID)
	assert.NotEmpty(t, got[0].Ts, "missing timestamp should be filled in")
	assert.True(t, got[1].Skipped)
}

func TestWriterPreservesExplicitTimestamp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir, "analysis")
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Write(Event{Type: "analysis", Ts: "2025-03-01T09:00:00Z"}))

	today := time.Now().UTC().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, "analysis-"+today+".jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2025-03-01T09:00:00Z")
}
