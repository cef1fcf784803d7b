package tts

import (
	"context"
	"net/http"
	"strings"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
	cartesiaModel   = "sonic-3"

	// defaultVoiceID is a stock Cartesia voice; deployments normally set TTS_VOICE.
	defaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"
)

// CartesiaProvider synthesizes speech with Cartesia's /tts/bytes endpoint.
type CartesiaProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia TTS provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return NewCartesiaWithClient(apiKey, nil)
}

// NewCartesiaWithClient creates a new Cartesia TTS provider with a custom HTTP client.
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

type cartesiaRequest struct {
	ModelID          string                    `json:"model_id"`
	Transcript       string                    `json:"transcript"`
	Voice            cartesiaVoice             `json:"voice"`
	OutputFormat     cartesiaOutputFormat      `json:"output_format"`
	Language         string                    `json:"language,omitempty"`
	GenerationConfig *cartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type cartesiaGenerationConfig struct {
	Speed float64 `json:"speed,omitempty"`
}

// Synthesize returns the spoken audio for text in one response.
func (c *CartesiaProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	model := opts.Model
	if model == "" {
		model = cartesiaModel
	}
	req := cartesiaRequest{
		ModelID:      model,
		Transcript:   text,
		Voice:        cartesiaVoice{Mode: "id", ID: voiceID},
		OutputFormat: cartesiaFormat(opts),
		Language:     opts.Language,
	}
	if opts.Speed != 0 {
		req.GenerationConfig = &cartesiaGenerationConfig{Speed: opts.Speed}
	}

	audio, err := postForAudio(ctx, c.httpClient, c.baseURL+"/tts/bytes", req, http.Header{
		"Authorization":    {"Bearer " + c.apiKey},
		"Cartesia-Version": {cartesiaVersion},
	}, statusError("cartesia"))
	if err != nil {
		return nil, err
	}
	return &Synthesis{Audio: audio, Format: getFormat(opts.Format)}, nil
}

// cartesiaFormat maps the requested format to Cartesia's output_format at
// 24 kHz unless a rate is given.
func cartesiaFormat(opts SynthesizeOptions) cartesiaOutputFormat {
	rate := opts.SampleRate
	if rate == 0 {
		rate = 24000
	}
	switch getFormat(opts.Format) {
	case "pcm", "raw":
		return cartesiaOutputFormat{Container: "raw", Encoding: "pcm_s16le", SampleRate: rate}
	case "wav":
		return cartesiaOutputFormat{Container: "wav", Encoding: "pcm_s16le", SampleRate: rate}
	default:
		return cartesiaOutputFormat{Container: "mp3", SampleRate: rate, BitRate: 128000}
	}
}
