package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tubenote/internal/config"
)

const (
	userAgent       = "tubenote/0.1"
	defaultNtfyHost = "https://ntfy.sh/"
)

// Service defines the notification surface used by the pipeline and CLI.
type Service interface {
	NotifyRunStarted(ctx context.Context, runID string, items int) error
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyItemFailed(ctx context.Context, videoID, title string, err error) error
	NotifyVideosDiscovered(ctx context.Context, channel string, count int) error
	TestNotification(ctx context.Context) error
}

// RunSummary is the run-completed payload.
type RunSummary struct {
	RunID     string
	Succeeded int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned. A bare
// topic name is published on ntfy.sh.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		topic = defaultNtfyHost + strings.TrimLeft(topic, "/")
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		runStarted:   cfg.Notifications.RunStarted,
		runCompleted: cfg.Notifications.RunCompleted,
		itemFailures: cfg.Notifications.ItemFailures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	runStarted   bool
	runCompleted bool
	itemFailures bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, runID string, items int) error {
	if !n.runStarted {
		return nil
	}
	data := payload{
		title:   "tubenote - Run Started",
		message: fmt.Sprintf("Processing %d videos (run %s)", items, shortID(runID)),
		tags:    []string{"tubenote", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	if !n.runCompleted {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "tubenote - Run Complete"
	priority := ""
	if summary.Failed > 0 {
		title = "tubenote - Run Complete (with failures)"
		priority = "high"
	}
	data := payload{
		title: title,
		message: fmt.Sprintf("📝 %d published, %d skipped, %d failed in %s",
			summary.Succeeded, summary.Skipped, summary.Failed, duration),
		tags:     []string{"tubenote", "run", "completed"},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemFailed(ctx context.Context, videoID, title string, err error) error {
	if !n.itemFailures {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ ")
	if title = strings.TrimSpace(title); title != "" {
		builder.WriteString(title)
		builder.WriteString(" (")
		builder.WriteString(videoID)
		builder.WriteString(")")
	} else {
		builder.WriteString(videoID)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown error")
	}
	data := payload{
		title:    "tubenote - Video Failed",
		message:  builder.String(),
		tags:     []string{"tubenote", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyVideosDiscovered(ctx context.Context, channel string, count int) error {
	if count <= 0 {
		return nil
	}
	data := payload{
		title:   "tubenote - New Videos",
		message: fmt.Sprintf("📺 %d new videos on %s", count, strings.TrimSpace(channel)),
		tags:    []string{"tubenote", "watch"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "tubenote - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"tubenote", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error           { return nil }
func (noopService) NotifyRunCompleted(context.Context, RunSummary) error          { return nil }
func (noopService) NotifyItemFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyVideosDiscovered(context.Context, string, int) error     { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
