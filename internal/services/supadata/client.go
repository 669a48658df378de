package supadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"tubenote/internal/logging"
	"tubenote/internal/services"
	"tubenote/internal/video"
)

const (
	DefaultBaseURL      = "https://api.supadata.ai/v1"
	DefaultPollInterval = 5 * time.Second
	defaultHTTPTimeout  = 60 * time.Second
	defaultMode         = "auto"
)

// Job statuses reported by the polling endpoint.
const (
	StatusQueued    = "queued"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Config holds the provider connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Language       string
	Mode           string
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// Transcript is a fetched transcript flattened to plain text.
type Transcript struct {
	Text     string
	Language string
	// Async is true when the provider answered with a job that had to be polled.
	Async bool
	Polls int
}

// StatusError reports an unexpected HTTP status from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.Join(strings.Fields(e.Body), " ")
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("transcript provider: http %d", e.StatusCode)
	}
	return fmt.Sprintf("transcript provider: http %d: %s", e.StatusCode, body)
}

// Client talks to the Supadata transcript API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
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

// WithLogger attaches a logger for poll progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "supadata")
	}
}

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a transcript client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Mode = strings.TrimSpace(cfg.Mode)
	if cfg.Mode == "" {
		cfg.Mode = defaultMode
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(nil, "supadata"),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transcriptResponse struct {
	Content        json.RawMessage `json:"content"`
	Lang           string          `json:"lang"`
	AvailableLangs []string        `json:"availableLangs"`
	JobID          string          `json:"jobId"`
	Status         string          `json:"status"`
	Error          json.RawMessage `json:"error"`
}

type segment struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
	Lang     string  `json:"lang"`
}

// Fetch requests the transcript for ref. A 202 answer starts the polling
// loop, which has no attempt cap and ends only on a terminal job status or
// when ctx is done.
func (c *Client) Fetch(ctx context.Context, ref video.Reference) (Transcript, error) {
	if c.cfg.APIKey == "" {
		return Transcript{}, services.Wrap(services.ErrConfiguration, "supadata", "fetch", "api key required", nil)
	}
	query := url.Values{}
	query.Set("url", ref.URL)
	if lang := strings.TrimSpace(c.cfg.Language); lang != "" {
		query.Set("lang", lang)
	}
	query.Set("text", "true")
	query.Set("mode", c.cfg.Mode)

	status, payload, err := c.get(ctx, c.cfg.BaseURL+"/transcript?"+query.Encode())
	if err != nil {
		return Transcript{}, err
	}
	switch status {
	case http.StatusOK:
		return c.finish(ref, payload, false, 0)
	case http.StatusAccepted:
		if strings.TrimSpace(payload.JobID) == "" {
			return Transcript{}, services.Wrap(services.ErrExternalService, "supadata", "fetch", "accepted without job id", nil)
		}
		return c.poll(ctx, ref, payload.JobID)
	}
	return Transcript{}, classifyStatus(status, "fetch", nil)
}

func (c *Client) poll(ctx context.Context, ref video.Reference, jobID string) (Transcript, error) {
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("transcript job pending", logging.String("job_id", jobID))
	endpoint := c.cfg.BaseURL + "/transcript/" + url.PathEscape(jobID)
	for polls := 1; ; polls++ {
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return Transcript{}, services.Wrap(services.ErrTimeout, "supadata", "poll", "job "+jobID, err)
		}
		status, payload, err := c.get(ctx, endpoint)
		if err != nil {
			return Transcript{}, err
		}
		if status == http.StatusAccepted {
			continue
		}
		if status != http.StatusOK {
			return Transcript{}, classifyStatus(status, "poll", nil)
		}
		switch strings.ToLower(strings.TrimSpace(payload.Status)) {
		case StatusFailed:
			detail := strings.Trim(strings.TrimSpace(string(payload.Error)), `"`)
			return Transcript{}, services.Wrap(services.ErrTranscriptUnavailable, "supadata", "poll", "job failed: "+detail, nil)
		case StatusCompleted:
			return c.finish(ref, payload, true, polls)
		case "":
			if hasContent(payload.Content) {
				return c.finish(ref, payload, true, polls)
			}
			logger.Debug("transcript job answered without status or content",
				logging.String("job_id", jobID),
				logging.Int("polls", polls),
			)
		default:
			logger.Debug("transcript job still running",
				logging.String("job_id", jobID),
				logging.String("status", payload.Status),
				logging.Int("polls", polls),
			)
		}
	}
}

func (c *Client) finish(ref video.Reference, payload transcriptResponse, async bool, polls int) (Transcript, error) {
	text, segLang, err := flattenContent(payload.Content)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "supadata", "decode content", "", err)
	}
	if strings.TrimSpace(text) == "" {
		return Transcript{}, services.Wrap(services.ErrTranscriptUnavailable, "supadata", "fetch", "empty transcript for "+ref.ID, nil)
	}
	lang := firstNonEmpty(payload.Lang, segLang, c.cfg.Language)
	return Transcript{
		Text:     text,
		Language: CanonicalLanguage(lang),
		Async:    async,
		Polls:    polls,
	}, nil
}

func hasContent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// flattenContent accepts either a plain string or a segment array and
// returns the text joined with single spaces in segment order.
func flattenContent(raw json.RawMessage) (string, string, error) {
	if !hasContent(raw) {
		return "", "", nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", "", err
		}
		return strings.TrimSpace(text), "", nil
	}
	var segments []segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return "", "", err
	}
	parts := make([]string, 0, len(segments))
	var lang string
	for _, seg := range segments {
		if lang == "" {
			lang = strings.TrimSpace(seg.Lang)
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), lang, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (int, transcriptResponse, error) {
	var payload transcriptResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, payload, services.Wrap(services.ErrValidation, "supadata", "build request", "", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, payload, services.Wrap(services.ErrTimeout, "supadata", "request", "", err)
		}
		return 0, payload, services.Wrap(services.ErrTransient, "supadata", "request", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return 0, payload, services.Wrap(services.ErrTransient, "supadata", "read body", "", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return resp.StatusCode, payload, classifyStatus(resp.StatusCode, "request", &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return resp.StatusCode, payload, services.Wrap(services.ErrExternalService, "supadata", "decode response", "", err)
		}
	}
	return resp.StatusCode, payload, nil
}

func classifyStatus(status int, operation string, cause error) error {
	if cause == nil {
		cause = &StatusError{StatusCode: status}
	}
	switch {
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrTranscriptUnavailable, "supadata", operation, "no transcript", cause)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "supadata", operation, "", cause)
	default:
		return services.Wrap(services.ErrExternalService, "supadata", operation, "", cause)
	}
}

// CanonicalLanguage normalizes a BCP 47 tag ("PT_br" -> "pt-BR"). Values that
// do not parse are returned trimmed.
func CanonicalLanguage(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", "-"))
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return value
	}
	return tag.String()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
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
