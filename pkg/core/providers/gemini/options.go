package gemini

import (
	"net/http"
	"strings"
)

// Option configures the Provider.
type Option func(*Provider)

// WithModel sets the Gemini model.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model = strings.TrimSpace(model); model != "" {
			p.model = model
		}
	}
}

// WithMaxOutputTokens caps the reply length.
func WithMaxOutputTokens(n int32) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxOutputTokens = n
		}
	}
}

// WithHTTPClient sets the HTTP client used by the genai SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}
