package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"docent/internal/services"
)

const (
	defaultBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout  = 60 * time.Second
	defaultAttempts = 5
	defaultMinDelay = time.Second
	defaultMaxDelay = 10 * time.Second
)

var (
	// ErrRateLimited is returned (wrapped) when the provider answers 429.
	ErrRateLimited = services.ErrRateLimited
	// ErrCreditsExhausted is returned (wrapped) when the provider answers 402.
	ErrCreditsExhausted = services.ErrCreditsExhausted

	errMissingAPIKey = fmt.Errorf("%w: api key required", services.ErrConfiguration)
)

// Config holds the provider settings for the vision model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg   Config
	http  *http.Client
	retry retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, keeping the configured timeout when
// the replacement has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			return
		}
		replacement := *client
		if replacement.Timeout <= 0 {
			replacement.Timeout = c.http.Timeout
		}
		c.http = &replacement
	}
}

// WithRetryMaxAttempts sets how many requests one call may make. Values
// below one mean a single attempt.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = max(attempts, 1) }
}

// WithRetryBackoff sets the first retry delay and the cap on later ones.
func WithRetryBackoff(minDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.minDelay = max(minDelay, 0)
		c.retry.maxDelay = max(maxDelay, 0)
	}
}

// WithSleeper replaces the wait between retries.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleep = sleep }
}

// NewClient builds a client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		retry: retryPolicy{
			attempts: defaultAttempts,
			minDelay: defaultMinDelay,
			maxDelay: defaultMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HealthCheck confirms the key and model answer a trivial JSON prompt.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("llm health: %w", errMissingAPIKey)
	}
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: `Respond with {"ok":true}`},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	reply, err := c.complete(ctx, "llm health", req)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := decodeReply(reply, &parsed); err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: model did not confirm")
	}
	return nil
}

// complete sends req until it yields a non-empty reply or the retry policy
// gives up.
func (c *Client) complete(ctx context.Context, op string, req chatRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.attempts; attempt++ {
		reply, err := c.post(ctx, op, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		wait, again := c.retry.next(ctx, err, attempt)
		if !again {
			return "", err
		}
		if err := c.retry.wait(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: gave up after %d attempts: %w", op, c.retry.attempts, lastErr)
}
