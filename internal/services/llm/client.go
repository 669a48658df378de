package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tubenote/internal/services"
)

const (
	// DefaultBaseURL is the OpenAI chat completions endpoint.
	DefaultBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultHTTPTimeout = 120 * time.Second
)

// Config describes one OpenAI-compatible endpoint. Referer and Title are
// only sent when set; OpenRouter reads them for attribution.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client sends chat completions to OpenAI, DeepSeek, or OpenRouter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retryPolicy
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts sets how many times a transient failure is tried.
// Values below one mean a single attempt.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff sets the first retry delay and the cap.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the retry wait. Tests use it to record delays.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient builds a client. An empty BaseURL targets OpenAI.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete rewrites text under prompt. The prompt travels as the system
// message and is omitted when blank.
func (c *Client) Complete(ctx context.Context, prompt, text string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "text required", nil)
	}
	req := chatCompletionRequest{Model: c.cfg.Model}
	if strings.TrimSpace(prompt) != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: prompt})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: text})

	content, err := c.exchange(ctx, req)
	if err != nil {
		return "", classifyError("complete", err)
	}
	return content, nil
}

// CompleteJSON asks for a JSON object at temperature zero and returns the raw
// payload.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	switch {
	case c.cfg.APIKey == "":
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete json", "api key required", nil)
	case systemPrompt == "" || userPrompt == "":
		return "", services.Wrap(services.ErrValidation, "llm", "complete json", "system and user prompts required", nil)
	}
	zero := 0.0
	content, err := c.exchange(ctx, chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    &zero,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	})
	if err != nil {
		return "", classifyError("complete json", err)
	}
	return content, nil
}

// HealthCheck sends a tiny JSON-mode request to prove the key and model work.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var reply struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &reply); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !reply.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

// IsRateLimited reports whether err came from an HTTP 429.
func IsRateLimited(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests
	}
	return errors.Is(err, services.ErrRateLimited)
}

// classifyError maps 429 to ErrRateLimited and 5xx to ErrTransient. Context
// errors pass through so callers see cancellation unchanged.
func classifyError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	marker := services.ErrExternalService
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			marker = services.ErrRateLimited
		case statusErr.StatusCode >= http.StatusInternalServerError:
			marker = services.ErrTransient
		}
	}
	return services.Wrap(marker, "llm", operation, "", err)
}
