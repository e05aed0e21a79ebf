// Package transcribe turns a video into text: audio extraction via yt-dlp
// and speech-to-text via the Whisper API.
package transcribe

import "context"

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// AudioFetcher downloads the audio track of a video URL and returns the
// local file path.
type AudioFetcher interface {
	Fetch(ctx context.Context, videoURL string) (string, error)
}
