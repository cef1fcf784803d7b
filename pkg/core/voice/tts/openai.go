package tts

import (
	"context"
	"net/http"
	"strings"

	"github.com/vango-go/vai-companion/pkg/core/providers/openai"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "tts-1"

	// DefaultOpenAIVoice is the voice used when none is configured.
	DefaultOpenAIVoice = "nova"
)

// OpenAIProvider synthesizes speech with the OpenAI audio speech endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(apiKey string) *OpenAIProvider {
	return NewOpenAIWithClient(apiKey, nil)
}

// NewOpenAIWithClient creates a new OpenAI TTS provider with a custom HTTP client.
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

type openAISpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize returns the spoken audio for text.
func (o *OpenAIProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	voice := opts.Voice
	if voice == "" {
		voice = DefaultOpenAIVoice
	}
	model := opts.Model
	if model == "" {
		model = openAIDefaultModel
	}
	format := getFormat(opts.Format)
	if format == "raw" {
		format = "pcm"
	}

	audio, err := postForAudio(ctx, o.httpClient, o.baseURL+"/audio/speech", openAISpeechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: format,
		Speed:          opts.Speed,
	}, http.Header{"Authorization": {"Bearer " + o.apiKey}}, func(status int, body []byte) error {
		return openai.ParseErrorBody(status, body)
	})
	if err != nil {
		return nil, err
	}
	return &Synthesis{Audio: audio, Format: format}, nil
}
