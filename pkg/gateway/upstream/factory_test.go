package upstream

import (
	"testing"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/providers/gemini"
	"github.com/vango-go/vai-companion/pkg/core/providers/openai"
	"github.com/vango-go/vai-companion/pkg/gateway/config"
)

func TestFactoryBuild_OpenAIDefaults(t *testing.T) {
	cfg := config.Config{OpenAIAPIKey: "sk-test", ChatProvider: "openai", ChatModel: "gpt-4", Language: "fa", TTSVoice: "nova"}
	s, err := Factory{HTTPClient: NewHTTPClient()}.Build(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer s.Close()

	chat, ok := s.Chat.(*openai.Provider)
	if !ok || chat.Model() != "gpt-4" {
		t.Fatalf("chat = %T", s.Chat)
	}
	if s.Pipeline.STTProvider().Name() != "openai" || s.Pipeline.TTSProvider().Name() != "openai" {
		t.Fatalf("voice providers = %s/%s", s.Pipeline.STTProvider().Name(), s.Pipeline.TTSProvider().Name())
	}
	if s.Pipeline.Language() != "fa" || s.Generator == nil {
		t.Fatalf("stack = %+v", s)
	}
}

func TestFactory_AlternateBackends(t *testing.T) {
	f := Factory{}
	cfg := config.Config{
		ChatProvider:     "gemini",
		GeminiAPIKey:     "g-key",
		ChatModel:        "gemini-2.0-flash",
		STTProvider:      "cartesia",
		CartesiaAPIKey:   "c-key",
		TTSProvider:      "elevenlabs",
		ElevenLabsAPIKey: "e-key",
	}

	chat, err := f.ChatModel(t.Context(), cfg)
	if err != nil {
		t.Fatalf("ChatModel() error = %v", err)
	}
	if g, ok := chat.(*gemini.Provider); !ok || g.Model() != "gemini-2.0-flash" {
		t.Fatalf("chat = %T", chat)
	}
	sttProvider, err := f.Transcriber(cfg)
	if err != nil || sttProvider.Name() != "cartesia" {
		t.Fatalf("Transcriber() = %v, %v", sttProvider, err)
	}
	ttsProvider, closer, err := f.Speech(t.Context(), cfg)
	if err != nil || ttsProvider.Name() != "elevenlabs" || closer != nil {
		t.Fatalf("Speech() = %v, %v, %v", ttsProvider, closer != nil, err)
	}
	cfg.TTSProvider = "cartesia"
	if p, _, err := f.Speech(t.Context(), cfg); err != nil || p.Name() != "cartesia" {
		t.Fatalf("Speech(cartesia) = %v, %v", p, err)
	}
}

func TestFactory_UnknownProviders(t *testing.T) {
	f := Factory{}
	if _, err := f.ChatModel(t.Context(), config.Config{ChatProvider: "llama"}); !core.IsType(err, core.ErrConfiguration) {
		t.Fatalf("ChatModel() error = %v", err)
	}
	if _, err := f.Transcriber(config.Config{STTProvider: "vosk"}); !core.IsType(err, core.ErrConfiguration) {
		t.Fatalf("Transcriber() error = %v", err)
	}
	if _, _, err := f.Speech(t.Context(), config.Config{TTSProvider: "espeak"}); !core.IsType(err, core.ErrConfiguration) {
		t.Fatalf("Speech() error = %v", err)
	}
	if _, err := f.ChatModel(t.Context(), config.Config{ChatProvider: "gemini"}); !core.IsType(err, core.ErrConfiguration) {
		t.Fatalf("gemini without key error = %v", err)
	}
}
