// Package vonage is a small client for the Vonage Voice API: outbound calls,
// recording downloads, call-control scripts and webhook payloads.
package vonage

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the Voice API host.
const DefaultBaseURL = "https://api.nexmo.com"

// Client calls the Vonage Voice API on behalf of one application.
type Client struct {
	applicationID string
	privateKey    *rsa.PrivateKey
	baseURL       string
	httpClient    *http.Client
	now           func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API host.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url = strings.TrimSpace(url); url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a client. Requests fail with ErrNotConfigured when the
// application id or key is missing.
func New(applicationID string, privateKey *rsa.PrivateKey, opts ...Option) *Client {
	c := &Client{
		applicationID: strings.TrimSpace(applicationID),
		privateKey:    privateKey,
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrNotConfigured is returned when the application credentials are absent.
var ErrNotConfigured = errors.New("vonage: application id and private key are required")

// Configured reports whether the client can sign requests.
func (c *Client) Configured() bool {
	return c != nil && c.applicationID != "" && c.privateKey != nil
}

// Endpoint is a call party.
type Endpoint struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// PhoneEndpoint returns a phone endpoint for number.
func PhoneEndpoint(number string) Endpoint {
	return Endpoint{Type: "phone", Number: number}
}

type createCallRequest struct {
	To   []Endpoint `json:"to"`
	From Endpoint   `json:"from"`
	NCCO NCCO       `json:"ncco"`
}

type createCallResponse struct {
	UUID             string `json:"uuid"`
	Status           string `json:"status"`
	Direction        string `json:"direction"`
	ConversationUUID string `json:"conversation_uuid"`
}

// CreateCall places an outbound call that runs ncco once answered and
// returns the call uuid.
func (c *Client) CreateCall(ctx context.Context, to, from string, ncco NCCO) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(createCallRequest{
		To:   []Endpoint{PhoneEndpoint(to)},
		From: PhoneEndpoint(from),
		NCCO: ncco,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", parseError(resp)
	}

	var out createCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.UUID == "" {
		return "", errors.New("vonage: response has no call uuid")
	}
	return out.UUID, nil
}

// ErrUntrustedRecordingURL is returned for recording URLs outside the API
// host and the Vonage domains. No request is made for them.
var ErrUntrustedRecordingURL = errors.New("vonage: recording url is not a vonage host")

// DownloadRecording fetches a recording into a new temporary mp3 file in dir
// ("" for the system temp dir) and returns its path. The caller removes it.
func (c *Client) DownloadRecording(ctx context.Context, recordingURL, dir string) (string, error) {
	if !c.trustedRecordingURL(recordingURL) {
		return "", ErrUntrustedRecordingURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	// Unsigned fetches are still attempted so local stubs work without
	// credentials.
	if c.Configured() {
		if err := c.authorize(req); err != nil {
			return "", err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", parseError(resp)
	}

	f, err := os.CreateTemp(dir, "recording_*.mp3")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write recording: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close recording: %w", err)
	}
	return f.Name(), nil
}

func (c *Client) authorize(req *http.Request) error {
	token, err := applicationToken(c.applicationID, c.privateKey, c.now())
	if err != nil {
		return fmt.Errorf("sign application token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// trustedRecordingURL accepts the configured API host with its own scheme,
// or an https URL on nexmo.com or vonage.com.
func (c *Client) trustedRecordingURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.User != nil {
		return false
	}
	if base, err := url.Parse(c.baseURL); err == nil && base.Host != "" &&
		strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host) {
		return true
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range []string{"nexmo.com", "vonage.com"} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
