// Package tts renders assistant replies as speech through vendor APIs.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice      string  // Voice identifier, provider specific
	Model      string  // Provider-specific model
	Speed      float64 // Speed multiplier, 0 means provider default
	Language   string  // Language code hint, e.g. "fa"
	Format     string  // Output format: "mp3", "wav" or "pcm"
	SampleRate int     // Sample rate for wav/pcm output
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio    []byte  // Audio data
	Format   string  // Audio format
	Duration float64 // Duration in seconds (if available)
}

// ContentType returns the MIME type of the synthesized audio.
func (s *Synthesis) ContentType() string {
	switch s.Format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

func getFormat(format string) string {
	switch format {
	case "mp3", "pcm", "raw", "wav":
		return format
	default:
		return "mp3"
	}
}

// statusError formats a non-2xx vendor response.
func statusError(vendor string) func(int, []byte) error {
	return func(status int, body []byte) error {
		return fmt.Errorf("%s error %d: %s", vendor, status, strings.TrimSpace(string(body)))
	}
}

// postForAudio POSTs payload as JSON and returns the body of a 200 response.
// Other statuses are converted by onError with up to 64 KiB of the body.
func postForAudio(ctx context.Context, client *http.Client, url string, payload any, header http.Header, onError func(int, []byte) error) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, onError(resp.StatusCode, msg)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}
