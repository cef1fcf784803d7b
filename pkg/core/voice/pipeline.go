// Package voice wires a speech-to-text and a text-to-speech provider into the
// two audio stages of a companion turn.
package voice

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/voice/stt"
	"github.com/vango-go/vai-companion/pkg/core/voice/tts"
)

// Config holds the per-pipeline defaults applied to every call.
type Config struct {
	Language     string // language hint for transcription and synthesis
	STTModel     string
	TTSModel     string
	Voice        string // default voice, provider specific
	OutputFormat string // synthesized audio format, "mp3" when empty
}

// Pipeline handles STT and TTS for companion turns.
type Pipeline struct {
	sttProvider stt.Provider
	ttsProvider tts.Provider
	cfg         Config
}

// NewPipeline creates a pipeline with OpenAI providers for both directions.
func NewPipeline(openAIKey string, cfg Config) *Pipeline {
	return NewPipelineWithProviders(stt.NewOpenAI(openAIKey), tts.NewOpenAI(openAIKey), cfg)
}

// NewPipelineWithProviders creates a new voice pipeline with custom providers.
func NewPipelineWithProviders(sttProvider stt.Provider, ttsProvider tts.Provider, cfg Config) *Pipeline {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "mp3"
	}
	return &Pipeline{
		sttProvider: sttProvider,
		ttsProvider: ttsProvider,
		cfg:         cfg,
	}
}

// STTProvider returns the current STT provider.
func (p *Pipeline) STTProvider() stt.Provider {
	return p.sttProvider
}

// TTSProvider returns the current TTS provider.
func (p *Pipeline) TTSProvider() tts.Provider {
	return p.ttsProvider
}

// Language returns the configured language hint.
func (p *Pipeline) Language() string {
	return p.cfg.Language
}

// Transcribe converts a complete audio clip to text. format is a hint such as
// "wav" or "mp3". Failures are returned as transcription errors.
func (p *Pipeline) Transcribe(ctx context.Context, audio io.Reader, format string) (string, error) {
	if p == nil || p.sttProvider == nil {
		return "", core.NewConfigurationError("no speech-to-text provider configured")
	}
	trans, err := p.sttProvider.Transcribe(ctx, audio, stt.TranscribeOptions{
		Model:    p.cfg.STTModel,
		Language: p.cfg.Language,
		Format:   format,
	})
	if err != nil {
		return "", core.NewTranscriptionError(p.sttProvider.Name(), err)
	}
	if trans == nil {
		return "", core.NewTranscriptionError(p.sttProvider.Name(), errors.New("no transcript returned"))
	}
	return strings.TrimSpace(trans.Text), nil
}

// Synthesize renders text as speech. An empty voice uses the configured default.
func (p *Pipeline) Synthesize(ctx context.Context, text, voice string) (*tts.Synthesis, error) {
	if p == nil || p.ttsProvider == nil {
		return nil, core.NewConfigurationError("no text-to-speech provider configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, core.NewSynthesisError(p.ttsProvider.Name(), errors.New("nothing to synthesize"))
	}
	if voice == "" {
		voice = p.cfg.Voice
	}
	syn, err := p.ttsProvider.Synthesize(ctx, text, tts.SynthesizeOptions{
		Voice:    voice,
		Model:    p.cfg.TTSModel,
		Language: p.cfg.Language,
		Format:   p.cfg.OutputFormat,
	})
	if err != nil {
		return nil, core.NewSynthesisError(p.ttsProvider.Name(), err)
	}
	if syn == nil || len(syn.Audio) == 0 {
		return nil, core.NewSynthesisError(p.ttsProvider.Name(), errors.New("empty audio"))
	}
	return syn, nil
}
