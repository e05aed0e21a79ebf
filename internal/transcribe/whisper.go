package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	whisperEndpoint = "https://api.openai.com/v1/audio/transcriptions"

	// The transcription API rejects uploads above 25 MB.
	maxUploadBytes = 25 * 1024 * 1024
)

// Whisper transcribes audio files with the OpenAI transcription API.
type Whisper struct {
	apiKey   string
	language string
	endpoint string
	http     *http.Client
}

func NewWhisper(apiKey, language string) *Whisper {
	return &Whisper{
		apiKey:   apiKey,
		language: language,
		endpoint: whisperEndpoint,
		http:     &http.Client{Timeout: 10 * time.Minute},
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() > maxUploadBytes {
		return "", fmt.Errorf("audio file %s is %d bytes, above the %d byte upload limit",
			audioPath, info.Size(), maxUploadBytes)
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}
	if err := mw.WriteField("model", "whisper-1"); err != nil {
		return "", err
	}
	if w.language != "" {
		if err := mw.WriteField("language", w.language); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling transcription API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription API error %d: %s", resp.StatusCode, msg)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return result.Text, nil
}
