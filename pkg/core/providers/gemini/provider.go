// Package gemini implements a reply backend on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/vango-go/vai-companion/pkg/core/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// contentGenerator is the slice of the genai Models service the provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider implements chat completion against Gemini.
type Provider struct {
	models          contentGenerator
	model           string
	maxOutputTokens int32
	httpClient      *http.Client
}

// New creates a Gemini provider backed by the public Gemini API.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	p := newWithGenerator(nil, opts...)
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	p.models = client.Models
	return p, nil
}

func newWithGenerator(models contentGenerator, opts ...Option) *Provider {
	p := &Provider{models: models, model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.model
}

// Complete generates the next assistant message. A leading system message
// becomes the system instruction; assistant turns map to the model role.
func (p *Provider) Complete(ctx context.Context, messages []types.Message) (string, error) {
	contents, config := p.translate(messages)
	if len(contents) == 0 {
		return "", &Error{Type: ErrInvalidRequest, Message: "no user or assistant messages"}
	}

	resp, err := p.models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", convertError(err)
	}
	if resp == nil {
		return "", &Error{Type: ErrAPI, Message: "empty response"}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		reason := ""
		if len(resp.Candidates) > 0 {
			reason = string(resp.Candidates[0].FinishReason)
		}
		return "", &Error{Type: ErrAPI, Message: "no text in response", Code: reason}
	}
	return text, nil
}

func (p *Provider) translate(messages []types.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if p.maxOutputTokens > 0 {
		config.MaxOutputTokens = p.maxOutputTokens
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, config
}
