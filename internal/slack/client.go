package slack

import (
	"net/http"
	"strings"
	"time"
)

const (
	// defaultRequestTimeout is the default timeout for Slack webhook requests
	defaultRequestTimeout = 10 * time.Second
	// defaultUsername is shown as the sender of alerts
	defaultUsername = "urlscout"
	// defaultMaxReasons caps the failing checks listed in one alert
	defaultMaxReasons = 5
)

// Client posts scan alerts to a Slack incoming webhook
type Client struct {
	webhookURL string
	httpClient *http.Client
	username   string
	reportURL  string
	maxReasons int
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for the Slack client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUsername overrides the sender name shown in Slack
func WithUsername(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.username = name
		}
	}
}

// WithReportURL sets a base URL; alerts link to <base>/<scan id>
func WithReportURL(base string) Option {
	return func(c *Client) {
		c.reportURL = strings.TrimSuffix(base, "/")
	}
}

// WithMaxReasons caps how many failing checks an alert lists
func WithMaxReasons(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxReasons = n
		}
	}
}

// New creates a new Slack webhook client
func New(webhookURL string, opts ...Option) (*Client, error) {
	if webhookURL == "" {
		return nil, ErrMissingWebhookURL
	}

	client := &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		username:   defaultUsername,
		maxReasons: defaultMaxReasons,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}
