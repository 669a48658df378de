package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"tubenote/internal/config"
	"tubenote/internal/logging"
	"tubenote/internal/services"
)

const (
	DefaultBaseURL       = "https://api.notion.com/v1"
	DefaultVersion       = "2022-06-28"
	defaultRPS           = 3
	defaultTimeout       = 30 * time.Second
	defaultMaxAttempts   = 4
	defaultRetryDelay    = time.Second
	defaultMaxRetryDelay = 30 * time.Second
)

// Config holds the workspace connection settings.
type Config struct {
	Token             string
	ParentID          string
	ParentType        string
	TitleProperty     string
	Version           string
	BaseURL           string
	RequestsPerSecond float64
	TimeoutSeconds    int
	EmbedVideo        bool
}

// ConfigFrom maps the [notion] section onto client settings.
func ConfigFrom(section config.Notion) Config {
	return Config{
		Token:             section.Token,
		ParentID:          section.ParentID,
		ParentType:        section.ParentType,
		TitleProperty:     section.TitleProperty,
		Version:           section.Version,
		BaseURL:           section.BaseURL,
		RequestsPerSecond: section.RequestsPerSecond,
		TimeoutSeconds:    section.TimeoutSeconds,
		EmbedVideo:        section.EmbedVideo,
	}
}

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("notion: http %d", e.StatusCode)
	}
	return fmt.Sprintf("notion: http %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client publishes pages to a Notion workspace through notionapi. All
// requests pass through one transport that applies the rate limit, the API
// version header and the configured base URL.
type Client struct {
	cfg         Config
	api         *notionapi.Client
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	maxAttempts int
	sleep       func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client whose transport carries the
// requests. Its Transport is wrapped, not replaced.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "notion")
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a Notion client. Requests share one token bucket sized
// by RequestsPerSecond.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.ParentID = strings.ReplaceAll(strings.TrimSpace(cfg.ParentID), "-", "")
	cfg.ParentType = strings.ToLower(strings.TrimSpace(cfg.ParentType))
	if cfg.ParentType == "" {
		cfg.ParentType = "page"
	}
	cfg.TitleProperty = strings.TrimSpace(cfg.TitleProperty)
	if cfg.TitleProperty == "" {
		cfg.TitleProperty = "title"
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = DefaultVersion
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		logger:      logging.NewComponentLogger(nil, "notion"),
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		base, _ = url.Parse(DefaultBaseURL)
	}
	wrapped := *c.httpClient
	wrapped.Transport = &transport{
		next:    c.httpClient.Transport,
		base:    base,
		version: cfg.Version,
		limiter: c.limiter,
	}
	c.api = notionapi.NewClient(notionapi.Token(cfg.Token), notionapi.WithHTTPClient(&wrapped))
	return c
}

// CheckAuth verifies the integration token by fetching the bot user.
func (c *Client) CheckAuth(ctx context.Context) (string, error) {
	var name string
	err := c.call(ctx, "users/me", true, func(ctx context.Context) error {
		user, err := c.api.User.Me(ctx)
		if err != nil {
			return err
		}
		name = user.Name
		return nil
	})
	return name, err
}

// call runs one API operation, retrying answers Notion gives before it
// writes anything (429, 409). Server errors and network failures are retried
// only for idempotent operations: a 5xx on a create or append may arrive
// after the write happened, and repeating it would duplicate content.
func (c *Client) call(ctx context.Context, operation string, idempotent bool, op func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		retry, delay := c.retryable(err, idempotent, attempt)
		if !retry || attempt == c.maxAttempts || ctx.Err() != nil {
			break
		}
		c.logger.Debug("notion request retry",
			logging.String("operation", operation),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) retryable(err error, idempotent bool, attempt int) (bool, time.Duration) {
	delay := min(defaultRetryDelay<<(attempt-1), defaultMaxRetryDelay)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 {
			delay = min(apiErr.RetryAfter, defaultMaxRetryDelay)
		}
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.StatusCode == http.StatusConflict:
			return true, delay
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return idempotent, delay
		}
		return false, 0
	}
	var netErr net.Error
	if idempotent && errors.As(err, &netErr) && netErr.Timeout() {
		return true, delay
	}
	return false, 0
}

// transport adapts notionapi's requests to the configured endpoint and turns
// every non-2xx answer into an *APIError before the library sees it, so
// status and Retry-After survive and retry policy stays in Client.call.
type transport struct {
	next    http.RoundTripper
	base    *url.URL
	version string
	limiter *rate.Limiter
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = t.base.Scheme
	out.URL.Host = t.base.Host
	out.URL.Path = strings.TrimRight(t.base.Path, "/") + strings.TrimPrefix(req.URL.Path, "/v1")
	out.URL.RawPath = ""
	out.Host = ""
	out.Header.Set("Notion-Version", t.version)

	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeAPIError(resp)
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var decoded struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(payload, &decoded) == nil {
		apiErr.Code = decoded.Code
		apiErr.Message = decoded.Message
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && seconds > 0 {
		apiErr.RetryAfter = time.Duration(seconds) * time.Second
	}
	return apiErr
}

// classify tags an API failure with the error taxonomy used by the pipeline.
func classify(operation string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return services.Wrap(services.ErrPublish, "notion", operation, "check the integration token and page sharing", err)
	}
	return services.Wrap(services.ErrPublish, "notion", operation, "", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
