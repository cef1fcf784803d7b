package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vango-go/vai-companion/pkg/core/providers/openai"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "whisper-1"
)

// OpenAIProvider transcribes with the OpenAI audio transcription endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI creates a new OpenAI STT provider.
func NewOpenAI(apiKey string) *OpenAIProvider {
	return NewOpenAIWithClient(apiKey, nil)
}

// NewOpenAIWithClient creates a new OpenAI STT provider with a custom HTTP client.
func NewOpenAIWithClient(apiKey string, client *http.Client) *OpenAIProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    openAIBaseURL,
		httpClient: client,
	}
}

// WithBaseURL points the provider at a different API host.
func (o *OpenAIProvider) WithBaseURL(base string) *OpenAIProvider {
	if base = strings.TrimSpace(base); base != "" {
		o.baseURL = strings.TrimRight(base, "/")
	}
	return o
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Transcribe uploads the clip and returns the plain-text transcript.
func (o *OpenAIProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	model := opts.Model
	if model == "" {
		model = openAIDefaultModel
	}
	body, contentType, err := audioForm(audio, opts.Format,
		[2]string{"model", model},
		[2]string{"response_format", "text"},
		[2]string{"language", opts.Language},
	)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, openai.ParseErrorBody(resp.StatusCode, text)
	}

	return &Transcript{
		Text:     strings.TrimSpace(string(text)),
		Language: opts.Language,
	}, nil
}
