package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// YTDLP extracts the audio track of a video by shelling out to yt-dlp.
// There is no native Go implementation of the extractors yt-dlp carries,
// so the external binary is treated as a collaborator.
type YTDLP struct {
	binary  string
	workDir string
}

func NewYTDLP(workDir string) *YTDLP {
	return &YTDLP{binary: "yt-dlp", workDir: workDir}
}

func (y *YTDLP) Fetch(ctx context.Context, videoURL string) (string, error) {
	if err := os.MkdirAll(y.workDir, 0755); err != nil {
		return "", fmt.Errorf("creating audio work dir: %w", err)
	}

	// Stale files from an interrupted previous run.
	y.Cleanup()

	outTmpl := filepath.Join(y.workDir, "audio.%(ext)s")
	cmd := exec.CommandContext(ctx, y.binary,
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--no-keep-video",
		"--quiet", "--no-warnings",
		"--output", outTmpl,
		videoURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w (%s)", err, out)
	}

	path := filepath.Join(y.workDir, "audio.mp3")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("yt-dlp produced no audio file: %w", err)
	}
	return path, nil
}

// Cleanup removes temporary audio files left in the work dir.
func (y *YTDLP) Cleanup() {
	matches, err := filepath.Glob(filepath.Join(y.workDir, "audio.*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			slog.Debug("removing temp audio file failed", "path", m, "err", err)
		}
	}
}
