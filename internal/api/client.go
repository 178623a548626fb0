package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Signer adds authentication to an outgoing request. *auth.Credentials
// satisfies it.
type Signer interface {
	Sign(req *http.Request) error
}

// Client provides access to the gateway REST API.
type Client struct {
	baseURL    string
	apiKey     string
	signer     Signer
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries    int
	retryBackoff  time.Duration
	maxRetryAfter time.Duration
	maxPages      int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. apiKey, when set, is sent as a
// bearer token.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:        slog.Default(),
		maxRetries:    3,
		retryBackoff:  time.Second,
		maxRetryAfter: time.Minute,
		maxPages:      1000,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithMaxRetryAfter caps how long a Retry-After hint may delay a retry.
func WithMaxRetryAfter(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetryAfter = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSigner signs every request with s.
func WithSigner(s Signer) ClientOption {
	return func(c *Client) {
		c.signer = s
	}
}

// WithMaxPages caps the pages followed for one series request.
func WithMaxPages(n int) ClientOption {
	return func(c *Client) {
		c.maxPages = n
	}
}
