// Slack alerting for routing incidents: policy violations, escalations, and
// exhausted chains.
package observability

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// SlackConfig contains configuration for Slack alerting.
type SlackConfig struct {
	Enabled            bool          `yaml:"enabled" json:"enabled"`
	WebhookURL         string        `yaml:"webhook_url" json:"-"`
	Channel            string        `yaml:"channel" json:"channel"`
	Username           string        `yaml:"username" json:"username"`
	IconEmoji          string        `yaml:"icon_emoji" json:"icon_emoji"`
	AlertOnViolations  bool          `yaml:"alert_on_violations" json:"alert_on_violations"`
	AlertOnEscalations bool          `yaml:"alert_on_escalations" json:"alert_on_escalations"`
	AlertOnExhausted   bool          `yaml:"alert_on_exhausted" json:"alert_on_exhausted"`
	MinInterval        time.Duration `yaml:"min_interval" json:"min_interval"`
}

// DefaultSlackConfig returns default configuration. The webhook URL falls
// through to the environment so it never has to live in the config file.
func DefaultSlackConfig() SlackConfig {
	return SlackConfig{
		Enabled:            false,
		WebhookURL:         os.Getenv("SLACK_WEBHOOK_URL"),
		Channel:            os.Getenv("SLACK_CHANNEL"),
		Username:           "Switchboard",
		IconEmoji:          ":telephone:",
		AlertOnViolations:  true,
		AlertOnEscalations: true,
		AlertOnExhausted:   true,
		MinInterval:        time.Minute,
	}
}

// Alerter posts routing incidents to a Slack webhook. Alerts are
// rate-limited per category so a flapping provider cannot flood a channel.
type Alerter struct {
	config SlackConfig
	client *http.Client

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color      string       `json:"color,omitempty"`
	Title      string       `json:"title,omitempty"`
	Text       string       `json:"text,omitempty"`
	Fields     []slackField `json:"fields,omitempty"`
	Footer     string       `json:"footer,omitempty"`
	Timestamp  int64        `json:"ts,omitempty"`
	MarkdownIn []string     `json:"mrkdwn_in,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewAlerter creates a Slack alerter.
func NewAlerter(cfg SlackConfig) (*Alerter, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("slack: webhook_url is required")
	}

	return &Alerter{
		config:    cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		lastAlert: make(map[string]time.Time),
	}, nil
}

var titleCaser = cases.Title(language.English)

// violationTitle turns "cost_exceeded" into "Cost Exceeded".
func violationTitle(kind string) string {
	return titleCaser.String(strings.ReplaceAll(kind, "_", " "))
}

// ViolationAlert reports budget violations on an otherwise successful
// response.
func (a *Alerter) ViolationAlert(ctx context.Context, intent string, violations []types.Violation) error {
	if a == nil || !a.config.AlertOnViolations || !a.allow("violation") {
		return nil
	}

	fields := []slackField{
		{Title: "Intent", Value: intent, Short: true},
	}
	for _, v := range violations {
		fields = append(fields, slackField{
			Title: violationTitle(v.Kind),
			Value: fmt.Sprintf("limit %.4g, actual %.4g (provider %s)", v.Limit, v.Actual, v.Provider),
			Short: false,
		})
	}

	return a.send(ctx, a.message(slackAttachment{
		Color:  "warning",
		Title:  ":warning: Policy Violation",
		Fields: fields,
	}))
}

// EscalationAlert reports a policy-triggered chain substitution.
func (a *Alerter) EscalationAlert(ctx context.Context, intent string, chain []string, final bool) error {
	if a == nil || !a.config.AlertOnEscalations || !a.allow("escalation") {
		return nil
	}

	title := ":arrow_heading_up: Escalation Triggered"
	color := "warning"
	if final {
		title = ":arrow_heading_up: Final Escalation Stage"
		color = "danger"
	}

	return a.send(ctx, a.message(slackAttachment{
		Color: color,
		Title: title,
		Fields: []slackField{
			{Title: "Intent", Value: intent, Short: true},
			{Title: "Chain", Value: strings.Join(chain, " → "), Short: true},
		},
	}))
}

// ExhaustedAlert reports a chain walk that ended without any provider
// producing a response.
func (a *Alerter) ExhaustedAlert(ctx context.Context, intent string, res *types.RoutingResult) error {
	if a == nil || !a.config.AlertOnExhausted || !a.allow("exhausted") {
		return nil
	}

	detail := "no attempts were made"
	if res.Error != nil {
		detail = res.Error.Error()
	}
	if len(detail) > 500 {
		detail = detail[:500] + "..."
	}

	var tried []string
	for _, at := range res.Attempts {
		tried = append(tried, fmt.Sprintf("%s (%s)", at.Provider, at.FailureKind))
	}

	return a.send(ctx, a.message(slackAttachment{
		Color: "danger",
		Title: ":x: Chain Exhausted",
		Text:  fmt.Sprintf("```%s```", detail),
		Fields: []slackField{
			{Title: "Intent", Value: intent, Short: true},
			{Title: "Request ID", Value: res.RequestID, Short: true},
			{Title: "Attempts", Value: strings.Join(tried, ", "), Short: false},
		},
	}))
}

// allow enforces the per-category minimum alert interval.
func (a *Alerter) allow(category string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if last, ok := a.lastAlert[category]; ok && time.Since(last) < a.config.MinInterval {
		return false
	}
	a.lastAlert[category] = time.Now()
	return true
}

func (a *Alerter) message(att slackAttachment) slackMessage {
	att.Footer = "Switchboard Alert"
	att.Timestamp = time.Now().Unix()
	att.MarkdownIn = []string{"text"}
	return slackMessage{
		Channel:     a.config.Channel,
		Username:    a.config.Username,
		IconEmoji:   a.config.IconEmoji,
		Attachments: []slackAttachment{att},
	}
}

func (a *Alerter) send(ctx context.Context, msg slackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
