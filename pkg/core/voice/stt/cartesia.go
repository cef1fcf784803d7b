package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
	cartesiaModel   = "ink-whisper"
)

// CartesiaProvider transcribes with Cartesia's batch /stt endpoint.
type CartesiaProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia STT provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return NewCartesiaWithClient(apiKey, nil)
}

// NewCartesiaWithClient creates a new Cartesia STT provider with a custom HTTP client.
func NewCartesiaWithClient(apiKey string, client *http.Client) *CartesiaProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &CartesiaProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    cartesiaBaseURL,
		httpClient: client,
	}
}

// WithBaseURL points the provider at a different API host.
func (c *CartesiaProvider) WithBaseURL(base string) *CartesiaProvider {
	if base = strings.TrimSpace(base); base != "" {
		c.baseURL = strings.TrimRight(base, "/")
	}
	return c
}

// Name returns the provider identifier.
func (c *CartesiaProvider) Name() string {
	return "cartesia"
}

type cartesiaTranscript struct {
	Text     string   `json:"text"`
	Language *string  `json:"language,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// Transcribe uploads the clip and returns Cartesia's transcript.
func (c *CartesiaProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	model := opts.Model
	if model == "" {
		model = cartesiaModel
	}
	body, contentType, err := audioForm(audio, opts.Format,
		[2]string{"model", model},
		[2]string{"language", opts.Language},
	)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stt", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("cartesia error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out cartesiaTranscript
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	t := &Transcript{Text: out.Text, Language: opts.Language}
	if out.Language != nil && *out.Language != "" {
		t.Language = *out.Language
	}
	if out.Duration != nil {
		t.Duration = *out.Duration
	}
	return t, nil
}
