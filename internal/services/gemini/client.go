// Package gemini adapts the Google GenAI SDK to the transformer's backend
// contract, throttling requests with a token bucket sized from the
// configured requests-per-minute quota.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"tubenote/internal/services"
)

const defaultRequestsPerMinute = 15

// Config holds the settings needed to reach the Gemini API.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	TimeoutSeconds    int
}

// Client issues text generation requests against a Gemini model.
type Client struct {
	models  *genai.Models
	model   string
	limiter *rate.Limiter
}

// NewClient builds a Gemini client. The context is only used while the SDK
// initializes.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "new client", "api key required", nil)
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	if cfg.TimeoutSeconds > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	gc, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "new client", "", err)
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	return &Client{
		models:  gc.Models,
		model:   strings.TrimSpace(cfg.Model),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}, nil
}

// Complete sends text with prompt as the system instruction and returns the
// concatenated text parts of the first candidate.
func (c *Client) Complete(ctx context.Context, prompt, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	config := &genai.GenerateContentConfig{}
	if strings.TrimSpace(prompt) != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt}}}
	}
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(text), config)
	if err != nil {
		return "", classifyError(err)
	}
	out := responseText(resp)
	if out == "" {
		return "", services.Wrap(services.ErrTransient, "gemini", "generate", "empty response", nil)
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if out := strings.TrimSpace(b.String()); out != "" {
			return out
		}
	}
	return ""
}

// IsRateLimited reports whether err is a quota rejection from the API.
func IsRateLimited(err error) bool {
	code, status, ok := apiErrorDetail(err)
	if !ok {
		return false
	}
	return code == http.StatusTooManyRequests || strings.EqualFold(status, "RESOURCE_EXHAUSTED")
}

func apiErrorDetail(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, true
	}
	return 0, "", false
}

func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsRateLimited(err) {
		return services.Wrap(services.ErrRateLimited, "gemini", "generate", "", err)
	}
	if code, _, ok := apiErrorDetail(err); ok && code >= http.StatusInternalServerError {
		return services.Wrap(services.ErrTransient, "gemini", "generate", "", err)
	}
	return services.Wrap(services.ErrExternalService, "gemini", "generate", "", err)
}
