package tts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
)

type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return NewElevenLabsWithClient(apiKey, nil)
}

func NewElevenLabsWithClient(apiKey string, client *http.Client) *ElevenLabsProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    elevenLabsBaseURL,
		httpClient: client,
	}
}

func (e *ElevenLabsProvider) WithBaseURL(base string) *ElevenLabsProvider {
	if e == nil {
		return e
	}
	if base = strings.TrimSpace(base); base != "" {
		e.baseURL = strings.TrimRight(base, "/")
	}
	return e
}

func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	LanguageCode  string                   `json:"language_code,omitempty"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Speed float64 `json:"speed,omitempty"`
}

func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if e == nil || e.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	voiceID := strings.TrimSpace(opts.Voice)
	if voiceID == "" {
		return nil, fmt.Errorf("voice id is required")
	}

	model := opts.Model
	if model == "" {
		model = elevenLabsDefaultModel
	}
	reqBody := elevenLabsRequest{Text: text, ModelID: model, LanguageCode: opts.Language}
	if opts.Speed != 0 {
		reqBody.VoiceSettings = &elevenLabsVoiceSettings{Speed: opts.Speed}
	}
	format := getFormat(opts.Format)
	outputFormat := "mp3_44100_128"
	if format == "pcm" || format == "raw" {
		rate := opts.SampleRate
		if rate == 0 {
			rate = 24000
		}
		outputFormat = fmt.Sprintf("pcm_%d", rate)
	} else {
		format = "mp3"
	}

	reqURL := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID) + "?output_format=" + url.QueryEscape(outputFormat)
	audio, err := postForAudio(ctx, e.httpClient, reqURL, reqBody, http.Header{
		"Xi-Api-Key": {e.apiKey},
		"Accept":     {"audio/mpeg"},
	}, statusError("elevenlabs"))
	if err != nil {
		return nil, err
	}
	return &Synthesis{Audio: audio, Format: format}, nil
}
