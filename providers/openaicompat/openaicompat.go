// Package openaicompat provides an adapter for OpenAI-compatible chat
// completion APIs. It serves OpenAI itself and the long tail of backends
// that mirror its wire format (DeepSeek, Ollama, vLLM, and friends).
package openaicompat

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

const (
	// AdapterType is the config type name for this adapter.
	AdapterType = "openai"

	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultTimeout = 60 * time.Second
)

// Client implements provider.Adapter over the chat completions wire format.
type Client struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	headers      map[string]string
	httpClient   *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithDefaultModel sets the model used when the request names none.
func WithDefaultModel(model string) Option {
	return func(c *Client) { c.defaultModel = model }
}

// WithHeader adds a custom header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the named provider.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    DefaultBaseURL,
		headers:    make(map[string]string),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a descriptor from provider configuration.
func NewFromConfig(cfg provider.Config) (*provider.Descriptor, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider %q: api_key or base_url is required", cfg.Name)
	}

	opts := []Option{
		WithAPIKey(cfg.APIKey),
		WithBaseURL(cfg.BaseURL),
		WithDefaultModel(cfg.DefaultModel),
	}
	if cfg.TimeoutSec > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		}))
	}

	c := New(cfg.Name, opts...)
	for k, v := range cfg.Headers {
		c.headers[k] = v
	}

	return &provider.Descriptor{
		Name: cfg.Name,
		Capabilities: provider.Capabilities{
			Models:           cfg.Models,
			MaxContextTokens: cfg.MaxContextTokens,
		},
		Adapter: c,
	}, nil
}

// wireRequest is the chat completions payload. Extra fields from the
// routing request are merged in without overriding the named ones.
type wireRequest struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *types.Usage `json:"usage,omitempty"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Invoke sends the request and maps the outcome onto the routing taxonomy.
func (c *Client) Invoke(ctx context.Context, req *types.Request) (*types.Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body, err := c.marshalPayload(model, req)
	if err != nil {
		return nil, errors.NewContractViolationError(c.name, model, "marshal request: "+err.Error())
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewContractViolationError(c.name, model, "create request: "+err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(c.name, model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransientNetworkError(c.name, model, "read response: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(model, resp.StatusCode, raw)
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errors.NewContractViolationError(c.name, model, "unmarshal response: "+err.Error())
	}
	if len(wire.Choices) == 0 {
		return nil, errors.NewContractViolationError(c.name, model, "response has no choices")
	}

	out := &types.Response{
		ID:           wire.ID,
		Provider:     c.name,
		Model:        wire.Model,
		Content:      wire.Choices[0].Message.Content,
		FinishReason: wire.Choices[0].FinishReason,
		Usage:        wire.Usage,
		Created:      wire.Created,
	}
	if out.Model == "" {
		out.Model = model
	}
	if out.Created == 0 {
		out.Created = time.Now().Unix()
	}
	return out, nil
}

func (c *Client) marshalPayload(model string, req *types.Request) ([]byte, error) {
	base, err := json.Marshal(wireRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil || len(req.Extra) == 0 {
		return base, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(base, &payload); err != nil {
		return nil, err
	}
	for key, value := range req.Extra {
		if _, exists := payload[key]; !exists {
			payload[key] = value
		}
	}
	return json.Marshal(payload)
}

// mapError classifies an error status. Content-policy rejections are the
// only non-retryable outcome; everything outside the taxonomy collapses
// to a contract defect.
func (c *Client) mapError(model string, statusCode int, body []byte) error {
	message := "unknown error"
	var wire wireError
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		message = wire.Error.Message
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return errors.NewRateLimitedError(c.name, model, message)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return errors.NewTimeoutError(c.name, model, message)
	case statusCode == http.StatusBadRequest && contentPolicyRejection(wire):
		return errors.NewPolicyViolationError(c.name, model, message)
	case statusCode >= 500:
		return errors.NewTransientNetworkError(c.name, model, message)
	default:
		return errors.NewContractViolationError(c.name, model,
			fmt.Sprintf("unexpected status %d: %s", statusCode, message))
	}
}

func contentPolicyRejection(wire wireError) bool {
	t := strings.ToLower(wire.Error.Type)
	code := strings.ToLower(wire.Error.Code)
	return strings.Contains(t, "content_policy") ||
		strings.Contains(t, "moderation") ||
		strings.Contains(code, "content_filter") ||
		strings.Contains(code, "content_policy")
}

func transportError(name, model string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.NewTimeoutError(name, model, err.Error())
	}
	return errors.NewTransientNetworkError(name, model, err.Error())
}
