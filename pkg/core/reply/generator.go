// Package reply builds chat prompts from a conversation and asks a chat model
// for the next assistant message.
package reply

import (
	"context"
	"errors"
	"strings"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/types"
)

const (
	// DefaultPersona is used for a fresh conversation when no system prompt is given.
	DefaultPersona = "You are a helpful AI assistant that can communicate in Farsi (Persian). Respond naturally and helpfully to the user's questions."

	// PhonePersona keeps replies short enough to speak over a call.
	PhonePersona = "You are a helpful AI assistant speaking in Farsi (Persian). Keep responses concise and natural for phone conversations. Limit responses to 2-3 sentences."
)

// ChatModel completes a conversation with the next assistant message.
type ChatModel interface {
	Complete(ctx context.Context, messages []types.Message) (string, error)
}

// Named is implemented by chat models that report a provider name.
type Named interface {
	Name() string
}

// Generator produces assistant replies.
type Generator struct {
	model          ChatModel
	defaultPersona string
}

// Option configures a Generator.
type Option func(*Generator)

// WithDefaultPersona replaces DefaultPersona. An empty persona disables it.
func WithDefaultPersona(persona string) Option {
	return func(g *Generator) {
		g.defaultPersona = persona
	}
}

// NewGenerator returns a Generator over model.
func NewGenerator(model ChatModel, opts ...Option) *Generator {
	g := &Generator{model: model, defaultPersona: DefaultPersona}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Prompt assembles the messages sent to the model: an optional system message,
// the history and the new user message. history is not modified.
func (g *Generator) Prompt(history []types.Message, userText, systemPrompt string) []types.Message {
	system := strings.TrimSpace(systemPrompt)
	if system == "" && len(history) == 0 {
		system = g.defaultPersona
	}
	if types.Conversation(history).HasSystemPrefix() {
		system = ""
	}

	msgs := make([]types.Message, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, types.System(system))
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, types.User(userText))
	return msgs
}

// Generate returns the assistant reply to userText. Callers are responsible
// for appending the user and assistant messages to their history.
func (g *Generator) Generate(ctx context.Context, history []types.Message, userText, systemPrompt string) (string, error) {
	if g == nil || g.model == nil {
		return "", core.NewConfigurationError("reply generator has no chat model")
	}

	text, err := g.model.Complete(ctx, g.Prompt(history, userText, systemPrompt))
	if err != nil {
		return "", core.NewGenerationError(g.providerName(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.NewGenerationError(g.providerName(), errors.New("empty completion"))
	}
	return text, nil
}

func (g *Generator) providerName() string {
	if n, ok := g.model.(Named); ok {
		return n.Name()
	}
	return ""
}
