package openai

import "github.com/vango-go/vai-companion/pkg/core/types"

// chatRequest is the OpenAI Chat Completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// chatMessage is one message in OpenAI format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildRequest translates a conversation into an OpenAI request. Roles map
// one to one.
func (p *Provider) buildRequest(messages []types.Message) *chatRequest {
	req := &chatRequest{
		Model:       p.model,
		Messages:    make([]chatMessage, 0, len(messages)),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return req
}
