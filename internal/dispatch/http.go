package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/version"
)

// AlertPath is the endpoint alerts are posted to.
const AlertPath = "/api/alert"

// HTTPConfig configures the HTTP sender.
type HTTPConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether an alert endpoint is configured.
func (c HTTPConfig) Enabled() bool {
	return c.BaseURL != ""
}

// ErrUnexpectedStatus is returned for non-2xx answers.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// HTTPSender posts alerts as JSON.
type HTTPSender struct {
	client *resty.Client
}

// NewHTTPSender creates a sender for cfg.BaseURL.
func NewHTTPSender(cfg HTTPConfig) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &HTTPSender{client: client}
}

// Name implements Sender.
func (s *HTTPSender) Name() string {
	return "http"
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, alert *safety.Alert) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(alert).
		Post(AlertPath)
	if err != nil {
		return fmt.Errorf("failed to post alert: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode(), resp.String())
	}

	return nil
}
