// Package upstream builds the vendor backends named in the configuration.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/providers/gemini"
	"github.com/vango-go/vai-companion/pkg/core/providers/openai"
	"github.com/vango-go/vai-companion/pkg/core/reply"
	"github.com/vango-go/vai-companion/pkg/core/voice"
	"github.com/vango-go/vai-companion/pkg/core/voice/stt"
	"github.com/vango-go/vai-companion/pkg/core/voice/tts"
	"github.com/vango-go/vai-companion/pkg/gateway/config"
)

// NewHTTPClient returns the shared client for vendor REST calls. It sets
// connection-level timeouts only; requests are bounded by their context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

type Factory struct {
	HTTPClient *http.Client
}

func (f Factory) client() *http.Client {
	if f.HTTPClient == nil {
		return &http.Client{}
	}
	return f.HTTPClient
}

// Stack is the set of backends a companion runs on.
type Stack struct {
	Chat      reply.ChatModel
	Generator *reply.Generator
	Pipeline  *voice.Pipeline

	closers []func() error
}

// Close releases backends that hold connections.
func (s *Stack) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build creates the chat, transcription and speech backends selected by cfg.
func (f Factory) Build(ctx context.Context, cfg config.Config) (*Stack, error) {
	chat, err := f.ChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sttProvider, err := f.Transcriber(cfg)
	if err != nil {
		return nil, err
	}
	ttsProvider, closer, err := f.Speech(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Chat:      chat,
		Generator: reply.NewGenerator(chat),
		Pipeline: voice.NewPipelineWithProviders(sttProvider, ttsProvider, voice.Config{
			Language: cfg.Language,
			Voice:    cfg.TTSVoice,
		}),
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	return s, nil
}

// ChatModel returns the reply backend.
func (f Factory) ChatModel(ctx context.Context, cfg config.Config) (reply.ChatModel, error) {
	switch cfg.ChatProvider {
	case config.ProviderOpenAI, "":
		return openai.New(cfg.OpenAIAPIKey,
			openai.WithHTTPClient(f.client()),
			openai.WithModel(cfg.ChatModel),
			openai.WithOrganization(cfg.OpenAIOrg),
		), nil
	case config.ProviderGemini:
		p, err := gemini.New(ctx, cfg.GeminiAPIKey,
			gemini.WithHTTPClient(f.client()),
			gemini.WithModel(cfg.ChatModel),
		)
		if err != nil {
			return nil, core.NewConfigurationError(err.Error())
		}
		return p, nil
	default:
		return nil, core.NewConfigurationError(fmt.Sprintf("unknown chat provider %q", cfg.ChatProvider))
	}
}

// Transcriber returns the speech-to-text backend.
func (f Factory) Transcriber(cfg config.Config) (stt.Provider, error) {
	switch cfg.STTProvider {
	case config.ProviderOpenAI, "":
		return stt.NewOpenAIWithClient(cfg.OpenAIAPIKey, f.client()), nil
	case config.ProviderCartesia:
		return stt.NewCartesiaWithClient(cfg.CartesiaAPIKey, f.client()), nil
	default:
		return nil, core.NewConfigurationError(fmt.Sprintf("unknown stt provider %q", cfg.STTProvider))
	}
}

// Speech returns the text-to-speech backend and, when it holds a
// connection, a func that releases it.
func (f Factory) Speech(ctx context.Context, cfg config.Config) (tts.Provider, func() error, error) {
	switch cfg.TTSProvider {
	case config.ProviderOpenAI, "":
		return tts.NewOpenAIWithClient(cfg.OpenAIAPIKey, f.client()), nil, nil
	case config.ProviderElevenLabs:
		return tts.NewElevenLabsWithClient(cfg.ElevenLabsAPIKey, f.client()), nil, nil
	case config.ProviderCartesia:
		return tts.NewCartesiaWithClient(cfg.CartesiaAPIKey, f.client()), nil, nil
	case config.ProviderGoogle:
		p, err := tts.NewGoogle(ctx)
		if err != nil {
			return nil, nil, core.NewConfigurationError(err.Error())
		}
		return p, p.Close, nil
	default:
		return nil, nil, core.NewConfigurationError(fmt.Sprintf("unknown tts provider %q", cfg.TTSProvider))
	}
}
