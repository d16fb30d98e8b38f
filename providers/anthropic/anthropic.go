// Package anthropic provides an adapter for the Anthropic Messages API.
// It translates routing requests into the messages wire format and maps
// API failures onto the routing taxonomy.
package anthropic

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
	AdapterType = "anthropic"

	// DefaultBaseURL is the Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAPIVersion is the Messages API version header value.
	DefaultAPIVersion = "2023-06-01"

	// DefaultMaxTokens applies when the request sets none; the Messages
	// API requires the field.
	DefaultMaxTokens = 4096

	defaultTimeout = 60 * time.Second
)

// Client implements provider.Adapter over the Messages API.
type Client struct {
	name         string
	apiKey       string
	baseURL      string
	apiVersion   string
	defaultModel string
	headers      map[string]string
	httpClient   *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets the API key.
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
		apiVersion: DefaultAPIVersion,
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
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q: api_key is required", cfg.Name)
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

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type wireError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends the request and maps the outcome onto the routing taxonomy.
func (c *Client) Invoke(ctx context.Context, req *types.Request) (*types.Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	wire := wireRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if wire.MaxTokens <= 0 {
		wire.MaxTokens = DefaultMaxTokens
	}

	// System turns move to the dedicated field; the Messages API rejects
	// a "system" role inside messages.
	for _, m := range req.Messages {
		if m.Role == "system" {
			var sys string
			if err := json.Unmarshal(m.Content, &sys); err == nil {
				wire.System = sys
			}
			continue
		}
		wire.Messages = append(wire.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.NewContractViolationError(c.name, model, "marshal request: "+err.Error())
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewContractViolationError(c.name, model, "create request: "+err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.apiVersion)
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			return nil, errors.NewTimeoutError(c.name, model, err.Error())
		}
		return nil, errors.NewTransientNetworkError(c.name, model, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransientNetworkError(c.name, model, "read response: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(model, resp.StatusCode, raw)
	}

	var parsed wireResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.NewContractViolationError(c.name, model, "unmarshal response: "+err.Error())
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 && len(parsed.Content) == 0 {
		return nil, errors.NewContractViolationError(c.name, model, "response has no content blocks")
	}

	out := &types.Response{
		ID:           parsed.ID,
		Provider:     c.name,
		Model:        parsed.Model,
		Content:      content.String(),
		FinishReason: parsed.StopReason,
		Usage: &types.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
		Created: time.Now().Unix(),
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

func (c *Client) mapError(model string, statusCode int, body []byte) error {
	message := "unknown error"
	errType := ""
	var wire wireError
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		message = wire.Error.Message
		errType = wire.Error.Type
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return errors.NewRateLimitedError(c.name, model, message)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return errors.NewTimeoutError(c.name, model, message)
	case statusCode == http.StatusBadRequest && policyRejection(errType, message):
		return errors.NewPolicyViolationError(c.name, model, message)
	case statusCode >= 500: // includes 529 overloaded_error
		return errors.NewTransientNetworkError(c.name, model, message)
	default:
		return errors.NewContractViolationError(c.name, model,
			fmt.Sprintf("unexpected status %d: %s", statusCode, message))
	}
}

func policyRejection(errType, message string) bool {
	msg := strings.ToLower(message)
	return errType == "content_policy_violation" ||
		strings.Contains(msg, "content filtering") ||
		strings.Contains(msg, "usage policy")
}
