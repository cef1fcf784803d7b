// Package companion runs the local voice chat loop: capture, transcribe,
// reply and speak, over a single in-memory conversation.
package companion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vango-go/vai-companion/pkg/audio"
	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/conversation"
	"github.com/vango-go/vai-companion/pkg/core/types"
	"github.com/vango-go/vai-companion/pkg/core/voice/tts"
)

// DefaultTurnDuration is the capture length used when a turn does not set one.
const DefaultTurnDuration = 5 * time.Second

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, format string) (string, error)
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*tts.Synthesis, error)
}

// Replier produces the assistant's next message.
type Replier interface {
	Generate(ctx context.Context, history []types.Message, userText, systemPrompt string) (string, error)
}

// Capturer records a fixed-length clip and returns WAV bytes.
type Capturer interface {
	Capture(ctx context.Context, duration time.Duration) ([]byte, error)
}

// Speaker plays audio and blocks until it finishes.
type Speaker interface {
	Play(ctx context.Context, data []byte, format string) error
}

// State is the phase of the current turn.
type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateResponding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateResponding:
		return "responding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the collaborators and defaults of a Companion.
type Config struct {
	Transcriber Transcriber
	Replier     Replier
	Synthesizer Synthesizer
	Capturer    Capturer
	Speaker     Speaker

	Language     string
	Voice        string
	SystemPrompt string

	Logger *slog.Logger
	Now    func() time.Time
}

// Companion owns one conversation. Methods are safe to call from multiple
// goroutines; turns are serialized.
type Companion struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	turnMu sync.Mutex

	mu      sync.Mutex
	history types.Conversation
	state   State
}

// New returns a Companion with an empty conversation.
func New(cfg Config) (*Companion, error) {
	if cfg.Transcriber == nil || cfg.Replier == nil {
		return nil, core.NewConfigurationError("companion requires a transcriber and a reply generator")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Companion{cfg: cfg, logger: logger, now: now, history: types.Conversation{}}, nil
}

// State returns the current turn phase.
func (c *Companion) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Companion) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.logger.Debug("companion state", "from", prev.String(), "to", s.String())
	}
}

// History returns a copy of the conversation.
func (c *Companion) History() types.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Clone()
}

// Clear empties the conversation.
func (c *Companion) Clear() {
	c.mu.Lock()
	c.history = types.Conversation{}
	c.mu.Unlock()
}

// TurnOptions configures one voice turn.
type TurnOptions struct {
	Duration time.Duration // capture length, DefaultTurnDuration when zero
	Play     bool          // speak the reply
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	UserText      string
	AssistantText string

	// Speech is the synthesized reply when Play was requested and synthesis succeeded.
	Speech *tts.Synthesis
	// SpeechErr records a synthesis or playback failure; the turn still counts.
	SpeechErr error
}

// Turn records the user, transcribes, replies and optionally speaks the reply.
// A failure before the reply leaves the conversation unchanged.
func (c *Companion) Turn(ctx context.Context, opts TurnOptions) (TurnResult, error) {
	if c.cfg.Capturer == nil {
		return TurnResult{}, core.NewConfigurationError("no microphone configured")
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultTurnDuration
	}

	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	defer c.setState(StateIdle)

	c.setState(StateListening)
	wav, err := c.cfg.Capturer.Capture(ctx, opts.Duration)
	if err != nil {
		return TurnResult{}, fmt.Errorf("record: %w", err)
	}

	c.setState(StateProcessing)
	userText, err := c.transcribe(ctx, bytes.NewReader(wav), "wav")
	if err != nil {
		return TurnResult{}, err
	}

	reply, err := c.reply(ctx, userText, c.cfg.SystemPrompt)
	if err != nil {
		return TurnResult{}, err
	}

	res := TurnResult{UserText: userText, AssistantText: reply}
	if opts.Play {
		c.setState(StateResponding)
		res.Speech, res.SpeechErr = c.speak(ctx, reply)
		if res.SpeechErr != nil {
			c.logger.Warn("speech output failed, continuing with text", "error", res.SpeechErr)
		}
	}
	return res, nil
}

// TurnOutcome is delivered by TurnAsync.
type TurnOutcome struct {
	Result TurnResult
	Err    error
}

// TurnAsync runs Turn on a new goroutine and delivers its outcome once on
// the returned channel.
func (c *Companion) TurnAsync(ctx context.Context, opts TurnOptions) <-chan TurnOutcome {
	out := make(chan TurnOutcome, 1)
	go func() {
		defer close(out)
		res, err := c.Turn(ctx, opts)
		out <- TurnOutcome{Result: res, Err: err}
	}()
	return out
}

// SendText runs a text-only turn. An empty systemPrompt falls back to the
// configured one.
func (c *Companion) SendText(ctx context.Context, text, systemPrompt string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.NewInvalidRequestError("message must not be empty")
	}
	if systemPrompt == "" {
		systemPrompt = c.cfg.SystemPrompt
	}

	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	defer c.setState(StateIdle)

	c.setState(StateProcessing)
	return c.reply(ctx, text, systemPrompt)
}

// Speak synthesizes text and plays it without touching the conversation.
func (c *Companion) Speak(ctx context.Context, text string) (*tts.Synthesis, error) {
	return c.speak(ctx, text)
}

// TranscribeFile transcribes an audio file without touching the conversation.
func (c *Companion) TranscribeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - local user chooses the file
	if err != nil {
		return "", core.NewInvalidRequestError(fmt.Sprintf("open audio file: %v", err))
	}
	defer f.Close()
	return c.transcribe(ctx, f, audio.FormatFromPath(path))
}

// SynthesizeToFile writes the spoken form of text to path.
func (c *Companion) SynthesizeToFile(ctx context.Context, text, path string) error {
	if c.cfg.Synthesizer == nil {
		return core.NewConfigurationError("no speech synthesizer configured")
	}
	syn, err := c.cfg.Synthesizer.Synthesize(ctx, text, c.cfg.Voice)
	if err != nil {
		return err
	}
	if err := audio.WriteFile(path, syn.Audio); err != nil {
		return core.NewPersistenceError(err)
	}
	return nil
}

// Play plays an audio file.
func (c *Companion) Play(ctx context.Context, path string) error {
	if c.cfg.Speaker == nil {
		return core.NewConfigurationError("no audio output configured")
	}
	data, err := os.ReadFile(path) // #nosec G304 - local user chooses the file
	if err != nil {
		return core.NewInvalidRequestError(fmt.Sprintf("read audio file: %v", err))
	}
	return c.cfg.Speaker.Play(ctx, data, audio.FormatFromPath(path))
}

// Record captures duration of audio into a WAV file.
func (c *Companion) Record(ctx context.Context, duration time.Duration, path string) error {
	if c.cfg.Capturer == nil {
		return core.NewConfigurationError("no microphone configured")
	}
	wav, err := c.cfg.Capturer.Capture(ctx, duration)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := audio.WriteFile(path, wav); err != nil {
		return core.NewPersistenceError(err)
	}
	return nil
}

// Save writes the conversation to path.
func (c *Companion) Save(path string) error {
	return conversation.SaveLocal(path, c.cfg.Language, c.History(), c.now())
}

// Load replaces the conversation with the one stored at path.
func (c *Companion) Load(path string) error {
	conv, err := conversation.LoadLocal(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.history = conv
	c.mu.Unlock()
	return nil
}

func (c *Companion) transcribe(ctx context.Context, r io.Reader, format string) (string, error) {
	text, err := c.cfg.Transcriber.Transcribe(ctx, r, format)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", core.NewTranscriptionError("", errors.New("no speech detected"))
	}
	return text, nil
}

// reply generates against a snapshot of the history and appends the exchange
// only on success. Callers hold turnMu.
func (c *Companion) reply(ctx context.Context, userText, systemPrompt string) (string, error) {
	history := c.History()
	text, err := c.cfg.Replier.Generate(ctx, history, userText, systemPrompt)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.history = append(c.history, types.User(userText), types.Assistant(text))
	c.mu.Unlock()
	return text, nil
}

func (c *Companion) speak(ctx context.Context, text string) (*tts.Synthesis, error) {
	if c.cfg.Synthesizer == nil {
		return nil, core.NewConfigurationError("no speech synthesizer configured")
	}
	syn, err := c.cfg.Synthesizer.Synthesize(ctx, text, c.cfg.Voice)
	if err != nil {
		return nil, err
	}
	if c.cfg.Speaker == nil {
		return syn, nil
	}
	if err := c.cfg.Speaker.Play(ctx, syn.Audio, syn.Format); err != nil {
		return syn, fmt.Errorf("play reply: %w", err)
	}
	return syn, nil
}
