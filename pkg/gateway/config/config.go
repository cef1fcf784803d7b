package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vango-go/vai-companion/pkg/core"
)

// Backend names accepted by the *_PROVIDER variables.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderCartesia   = "cartesia"
	ProviderElevenLabs = "elevenlabs"
	ProviderGoogle     = "google"
)

const (
	DefaultOpenAIChatModel = "gpt-4"
	DefaultGeminiChatModel = "gemini-2.0-flash"
)

type Config struct {
	// Vendor backends.
	OpenAIAPIKey     string
	OpenAIOrg        string
	ChatProvider     string
	ChatModel        string
	GeminiAPIKey     string
	STTProvider      string
	CartesiaAPIKey   string
	TTSProvider      string
	ElevenLabsAPIKey string
	TTSVoice         string
	Language         string

	// Call control.
	VonageAPIKey          string
	VonageAPISecret       string
	VonageApplicationID   string
	VonagePrivateKeyPath  string
	VonagePhoneNumber     string
	VonageSignatureSecret string
	VonageAPIBaseURL      string

	// BaseURL is the public URL the call-control service posts webhooks to.
	BaseURL string
	Port    int
	Addr    string

	CallArchiveDir string
	MaxBodyBytes   int64

	// MonitorToken guards /ws/monitor; the feed is not served without it.
	MonitorToken string

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

// CallControlConfigured reports whether outbound calls and authenticated
// recording downloads are possible.
func (c Config) CallControlConfigured() bool {
	return c.VonageApplicationID != "" && c.VonagePrivateKeyPath != ""
}

// MonitorEnabled reports whether the operator feed is served.
func (c Config) MonitorEnabled() bool {
	return c.MonitorToken != ""
}

// OutboundNumberMissing reports call control without a caller id, which
// leaves inbound calls working but outbound calls failing.
func (c Config) OutboundNumberMissing() bool {
	return c.CallControlConfigured() && c.VonagePhoneNumber == ""
}

// LoadFromEnv reads the process environment. Invalid settings are returned as
// configuration errors.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		OpenAIAPIKey:          envOr("OPENAI_API_KEY", ""),
		OpenAIOrg:             envOr("OPENAI_ORGANIZATION", ""),
		ChatProvider:          strings.ToLower(envOr("CHAT_PROVIDER", ProviderOpenAI)),
		GeminiAPIKey:          envOr("GEMINI_API_KEY", ""),
		STTProvider:           strings.ToLower(envOr("STT_PROVIDER", ProviderOpenAI)),
		CartesiaAPIKey:        envOr("CARTESIA_API_KEY", ""),
		TTSProvider:           strings.ToLower(envOr("TTS_PROVIDER", ProviderOpenAI)),
		ElevenLabsAPIKey:      envOr("ELEVENLABS_API_KEY", ""),
		TTSVoice:              envOr("TTS_VOICE", "nova"),
		Language:              envOr("COMPANION_LANGUAGE", "fa"),
		VonageAPIKey:          envOr("VONAGE_API_KEY", ""),
		VonageAPISecret:       envOr("VONAGE_API_SECRET", ""),
		VonageApplicationID:   envOr("VONAGE_APPLICATION_ID", ""),
		VonagePrivateKeyPath:  envOr("VONAGE_PRIVATE_KEY_PATH", ""),
		VonagePhoneNumber:     envOr("VONAGE_PHONE_NUMBER", ""),
		VonageSignatureSecret: envOr("VONAGE_SIGNATURE_SECRET", ""),
		VonageAPIBaseURL:      envOr("VONAGE_API_BASE_URL", "https://api.nexmo.com"),
		BaseURL:               strings.TrimRight(envOr("BASE_URL", "https://your-server.com"), "/"),
		Port:                  envIntOr("PORT", 5000),
		CallArchiveDir:        envOr("CALL_ARCHIVE_DIR", "."),
		MaxBodyBytes:          envInt64Or("PHONE_MAX_BODY_BYTES", 1<<20), // 1 MiB
		MonitorToken:          envOr("MONITOR_TOKEN", ""),
		ReadHeaderTimeout:     envDurationOr("PHONE_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:           envDurationOr("PHONE_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod:   envDurationOr("PHONE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	defaultModel := DefaultOpenAIChatModel
	if cfg.ChatProvider == ProviderGemini {
		defaultModel = DefaultGeminiChatModel
	}
	cfg.ChatModel = envOr("CHAT_MODEL", defaultModel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.Addr = fmt.Sprintf(":%d", cfg.Port)
	return cfg, nil
}

// Validate checks backend selection, required credentials and limits.
func (c Config) Validate() error {
	switch c.ChatProvider {
	case ProviderOpenAI:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return core.NewConfigurationError("GEMINI_API_KEY must be set when CHAT_PROVIDER=gemini")
		}
	default:
		return core.NewConfigurationError("CHAT_PROVIDER must be one of openai|gemini")
	}

	switch c.STTProvider {
	case ProviderOpenAI:
	case ProviderCartesia:
		if c.CartesiaAPIKey == "" {
			return core.NewConfigurationError("CARTESIA_API_KEY must be set when STT_PROVIDER=cartesia")
		}
	default:
		return core.NewConfigurationError("STT_PROVIDER must be one of openai|cartesia")
	}

	switch c.TTSProvider {
	case ProviderOpenAI, ProviderGoogle:
	case ProviderElevenLabs:
		if c.ElevenLabsAPIKey == "" {
			return core.NewConfigurationError("ELEVENLABS_API_KEY must be set when TTS_PROVIDER=elevenlabs")
		}
	case ProviderCartesia:
		if c.CartesiaAPIKey == "" {
			return core.NewConfigurationError("CARTESIA_API_KEY must be set when TTS_PROVIDER=cartesia")
		}
	default:
		return core.NewConfigurationError("TTS_PROVIDER must be one of openai|elevenlabs|google|cartesia")
	}

	if c.OpenAIAPIKey == "" && (c.ChatProvider == ProviderOpenAI || c.STTProvider == ProviderOpenAI || c.TTSProvider == ProviderOpenAI) {
		return core.NewConfigurationError("OPENAI_API_KEY environment variable is required")
	}
	if strings.TrimSpace(c.ChatModel) == "" {
		return core.NewConfigurationError("CHAT_MODEL must not be empty")
	}
	if (c.VonageApplicationID == "") != (c.VonagePrivateKeyPath == "") {
		return core.NewConfigurationError("VONAGE_APPLICATION_ID and VONAGE_PRIVATE_KEY_PATH must be set together")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return core.NewConfigurationError("PORT must be between 1 and 65535")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return core.NewConfigurationError("BASE_URL must not be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return core.NewConfigurationError("PHONE_MAX_BODY_BYTES must be > 0")
	}
	if c.ReadHeaderTimeout <= 0 {
		return core.NewConfigurationError("PHONE_READ_HEADER_TIMEOUT must be > 0")
	}
	if c.ReadTimeout <= 0 {
		return core.NewConfigurationError("PHONE_READ_TIMEOUT must be > 0")
	}
	if c.ShutdownGracePeriod <= 0 {
		return core.NewConfigurationError("PHONE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
