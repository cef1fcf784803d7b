package openai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// chatResponse is the OpenAI Chat Completions response format.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// parseResponse extracts the assistant text of the first choice. A response
// without choices or with empty content is malformed.
func (p *Provider) parseResponse(body []byte) (string, error) {
	var openaiResp chatResponse
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	choice := openaiResp.Choices[0]
	if choice.Message.Content == nil || strings.TrimSpace(*choice.Message.Content) == "" {
		return "", fmt.Errorf("empty assistant content (finish_reason=%q)", choice.FinishReason)
	}
	return *choice.Message.Content, nil
}
