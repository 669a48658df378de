package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tubenote/internal/config"
	"tubenote/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func configFor(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor(""))
	if err := svc.NotifyRunStarted(context.Background(), "run", 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsRunCompleted(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := notifications.NewService(configFor(server.URL))

	err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{
		Succeeded: 3, Skipped: 1, Failed: 2, Duration: 95*time.Second + 400*time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NotifyRunCompleted returned error: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	got := (*captured)[0]
	if got.title != "tubenote - Run Complete (with failures)" || got.priority != "high" {
		t.Fatalf("unexpected headers %+v", got)
	}
	if got.body != "📝 3 published, 1 skipped, 2 failed in 1m35s" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.tags != "tubenote,run,completed" {
		t.Fatalf("unexpected tags %q", got.tags)
	}
}

func TestNtfyServiceFormatsItemFailure(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := notifications.NewService(configFor(server.URL))

	if err := svc.NotifyItemFailed(context.Background(), "abc", "Talk", errors.New("publish: http 400")); err != nil {
		t.Fatalf("NotifyItemFailed returned error: %v", err)
	}
	got := (*captured)[0]
	if got.body != "❌ Talk (abc): publish: http 400" {
		t.Fatalf("unexpected body %q", got.body)
	}
}

func TestNtfyServiceHonoursEventToggles(t *testing.T) {
	server, captured := newCaptureServer(t)
	cfg := configFor(server.URL)
	cfg.Notifications.RunStarted = false
	cfg.Notifications.ItemFailures = false
	svc := notifications.NewService(cfg)

	_ = svc.NotifyRunStarted(context.Background(), "run-123456789", 4)
	_ = svc.NotifyItemFailed(context.Background(), "abc", "", errors.New("boom"))
	_ = svc.NotifyVideosDiscovered(context.Background(), "Chan", 0)
	if len(*captured) != 0 {
		t.Fatalf("expected no requests, got %d", len(*captured))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	err := notifications.NewService(configFor(server.URL)).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
