package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf16"

	"tubenote/internal/blocks"
	"tubenote/internal/services"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeNotion struct {
	mu        sync.Mutex
	requests  []recordedRequest
	failAfter int
	appends   int
}

func (f *fakeNotion) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Notion-Version"); got != DefaultVersion {
			t.Errorf("unexpected Notion-Version %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/pages":
			_, _ = w.Write([]byte(`{"object":"page","id":"page-1","url":"https://notion.so/page-1"}`))
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/blocks/"):
			f.mu.Lock()
			f.appends++
			fail := f.failAfter > 0 && f.appends >= f.failAfter
			f.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"object":"error","code":"validation_error","message":"bad block"}`))
				return
			}
			_, _ = w.Write([]byte(`{"object":"list"}`))
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/pages/"):
			_, _ = w.Write([]byte(`{"object":"page","archived":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/users/me":
			_, _ = w.Write([]byte(`{"object":"user","type":"bot","name":"tubenote"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, fake *fakeNotion, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	cfg.Token = "secret"
	cfg.BaseURL = server.URL
	cfg.RequestsPerSecond = 1000
	if cfg.ParentID == "" {
		cfg.ParentID = "abcd-1234"
	}
	return NewClient(cfg, WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }))
}

func makeBlocks(n int) []blocks.Block {
	out := make([]blocks.Block, n)
	for i := range out {
		out[i] = blocks.Block{Content: fmt.Sprintf("paragraph %d", i)}
	}
	return out
}

func childCount(body map[string]any) int {
	children, _ := body["children"].([]any)
	return len(children)
}

func TestPublishSmallDocumentInOneRequest(t *testing.T) {
	fake := &fakeNotion{}
	client := newTestClient(t, fake, Config{EmbedVideo: true})

	id, err := client.Publish(context.Background(), Document{
		Title:    "Talk - Chan",
		Blocks:   makeBlocks(3),
		VideoURL: "https://www.youtube.com/watch?v=abc",
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if id != "page-1" {
		t.Fatalf("unexpected page id %q", id)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(fake.requests))
	}
	body := fake.requests[0].Body
	parent := body["parent"].(map[string]any)
	if parent["page_id"] != "abcd1234" {
		t.Fatalf("unexpected parent %v", parent)
	}
	children := body["children"].([]any)
	if len(children) != 4 {
		t.Fatalf("expected video + 3 paragraphs, got %d", len(children))
	}
	first := children[0].(map[string]any)
	if first["type"] != "video" {
		t.Fatalf("expected leading video block, got %v", first["type"])
	}
	second := children[1].(map[string]any)
	rich := second["paragraph"].(map[string]any)["rich_text"].([]any)
	text := rich[0].(map[string]any)["text"].(map[string]any)["content"]
	if text != "paragraph 0" {
		t.Fatalf("unexpected paragraph content %v", text)
	}
	title := body["properties"].(map[string]any)["title"].(map[string]any)["title"].([]any)
	if title[0].(map[string]any)["text"].(map[string]any)["content"] != "Talk - Chan" {
		t.Fatalf("unexpected title payload %v", title)
	}
}

func TestPublishBatchesLargeDocuments(t *testing.T) {
	fake := &fakeNotion{}
	client := newTestClient(t, fake, Config{})

	if _, err := client.Publish(context.Background(), Document{Title: "Long", Blocks: makeBlocks(250)}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(fake.requests) != 3 {
		t.Fatalf("expected create + 2 appends, got %d", len(fake.requests))
	}
	counts := []int{childCount(fake.requests[0].Body), childCount(fake.requests[1].Body), childCount(fake.requests[2].Body)}
	if counts[0] != 100 || counts[1] != 100 || counts[2] != 50 {
		t.Fatalf("unexpected batch sizes %v", counts)
	}
	if fake.requests[1].Path != "/blocks/page-1/children" {
		t.Fatalf("unexpected append path %s", fake.requests[1].Path)
	}
}

func TestPublishArchivesPartialPageOnAppendFailure(t *testing.T) {
	fake := &fakeNotion{failAfter: 2}
	client := newTestClient(t, fake, Config{})

	_, err := client.Publish(context.Background(), Document{Title: "Long", Blocks: makeBlocks(350)})
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	last := fake.requests[len(fake.requests)-1]
	if last.Method != http.MethodPatch || last.Path != "/pages/page-1" || last.Body["archived"] != true {
		t.Fatalf("expected archive request, got %+v", last)
	}
}

func TestPublishUsesDatabaseParent(t *testing.T) {
	fake := &fakeNotion{}
	client := newTestClient(t, fake, Config{ParentType: "database", TitleProperty: "Name"})

	if _, err := client.Publish(context.Background(), Document{Title: "T", Blocks: makeBlocks(1)}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	body := fake.requests[0].Body
	if _, ok := body["parent"].(map[string]any)["database_id"]; !ok {
		t.Fatalf("expected database parent, got %v", body["parent"])
	}
	if _, ok := body["properties"].(map[string]any)["Name"]; !ok {
		t.Fatalf("expected Name title property, got %v", body["properties"])
	}
}

func TestRequestsRetryRateLimits(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"rate_limited","message":"slow down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"bot"}`))
	}))
	defer server.Close()

	var waits []time.Duration
	client := NewClient(Config{Token: "secret", BaseURL: server.URL, RequestsPerSecond: 1000},
		WithSleeper(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}))
	name, err := client.CheckAuth(context.Background())
	if err != nil {
		t.Fatalf("CheckAuth returned error: %v", err)
	}
	if name != "bot" || calls != 2 {
		t.Fatalf("unexpected result name=%q calls=%d", name, calls)
	}
	if len(waits) != 1 || waits[0] != 2*time.Second {
		t.Fatalf("expected Retry-After wait, got %v", waits)
	}
}

func TestCheckAuthReportsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"API token is invalid."}`))
	}))
	defer server.Close()

	client := NewClient(Config{Token: "bad", BaseURL: server.URL, RequestsPerSecond: 1000})
	_, err := client.CheckAuth(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != "unauthorized" {
		t.Fatalf("expected unauthorized APIError, got %v", err)
	}
}

func TestPublishDoesNotRepeatCreateAfterServerError(t *testing.T) {
	var creates int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			return
		}
		creates++
		if creates == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		_, _ = w.Write([]byte(`{"object":"page","id":"page-2"}`))
	}))
	defer server.Close()

	client := NewClient(Config{Token: "secret", ParentID: "abc", BaseURL: server.URL, RequestsPerSecond: 1000},
		WithSleeper(func(context.Context, time.Duration) error { return nil }))
	id, err := client.Publish(context.Background(), Document{Title: "T", Blocks: makeBlocks(1)})
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected ErrPublish, got id=%q err=%v", id, err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 APIError, got %v", err)
	}
	if creates != 1 {
		t.Fatalf("expected a single create request, got %d", creates)
	}
}

func TestPublishRetriesRateLimitedCreate(t *testing.T) {
	var creates int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creates++
		if creates == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"rate_limited","message":"slow down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1"}`))
	}))
	defer server.Close()

	client := NewClient(Config{Token: "secret", ParentID: "abc", BaseURL: server.URL, RequestsPerSecond: 1000},
		WithSleeper(func(context.Context, time.Duration) error { return nil }))
	id, err := client.Publish(context.Background(), Document{Title: "T", Blocks: makeBlocks(1)})
	if err != nil || id != "page-1" || creates != 2 {
		t.Fatalf("unexpected result id=%q err=%v creates=%d", id, err, creates)
	}
}

func TestCheckAuthRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"object":"user","type":"bot","name":"bot"}`))
	}))
	defer server.Close()

	client := NewClient(Config{Token: "secret", BaseURL: server.URL, RequestsPerSecond: 1000},
		WithSleeper(func(context.Context, time.Duration) error { return nil }))
	name, err := client.CheckAuth(context.Background())
	if err != nil || name != "bot" || calls != 2 {
		t.Fatalf("unexpected result name=%q err=%v calls=%d", name, err, calls)
	}
}

func TestTruncateCountsUTF16Units(t *testing.T) {
	title := strings.Repeat("😀", 1500)
	got := truncate(title, maxTitleLength)
	if n := len(utf16.Encode([]rune(got))); n != maxTitleLength {
		t.Fatalf("expected %d UTF-16 units, got %d", maxTitleLength, n)
	}
}
