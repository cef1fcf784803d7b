package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
)

// speechClient is the part of the Cloud Text-to-Speech client GoogleProvider uses.
type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleProvider synthesizes speech with Google Cloud Text-to-Speech.
// Credentials come from Application Default Credentials.
type GoogleProvider struct {
	client speechClient
}

// NewGoogle dials the Cloud Text-to-Speech API.
func NewGoogle(ctx context.Context) (*GoogleProvider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google tts client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

// Name returns the provider identifier.
func (g *GoogleProvider) Name() string {
	return "google"
}

// Close releases the underlying gRPC connection.
func (g *GoogleProvider) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Synthesize returns MP3 audio unless wav or pcm output is requested.
func (g *GoogleProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	format := getFormat(opts.Format)
	encoding := texttospeechpb.AudioEncoding_MP3
	switch format {
	case "wav":
		encoding = texttospeechpb.AudioEncoding_LINEAR16
	case "pcm", "raw":
		// LINEAR16 carries a WAV header; there is no headerless variant.
		encoding = texttospeechpb.AudioEncoding_LINEAR16
		format = "wav"
	default:
		format = "mp3"
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: googleLanguageCode(opts.Language),
			Name:         opts.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   encoding,
			SpeakingRate:    opts.Speed,
			SampleRateHertz: int32(opts.SampleRate),
		},
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("google synthesize: %w", err)
	}
	return &Synthesis{Audio: resp.GetAudioContent(), Format: format}, nil
}

// googleLanguageCode expands a bare language hint into a BCP-47 locale.
func googleLanguageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	switch strings.ToLower(lang) {
	case "":
		return "en-US"
	case "fa":
		return "fa-IR"
	case "en":
		return "en-US"
	case "ar":
		return "ar-XA"
	}
	if strings.Contains(lang, "-") {
		return lang
	}
	return strings.ToLower(lang) + "-" + strings.ToUpper(lang)
}
