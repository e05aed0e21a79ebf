package rss

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// History persists the set of already-seen videos as a JSON file. Writes
// go through a temp file and rename so a crash never leaves a truncated
// history behind.
type History struct {
	path string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

// Load returns the stored videos, or an empty slice when the file does not
// exist yet (first run).
func (h *History) Load() ([]Video, error) {
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var videos []Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	return videos, nil
}

func (h *History) Save(videos []Video) error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	tmp := h.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing history: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, h.path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}
