package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tubenote/internal/checkpoint"
	"tubenote/internal/pipeline"
	"tubenote/internal/services"
)

type fakeServices struct {
	server *httptest.Server

	mu         sync.Mutex
	pages      []map[string]any
	chatCalls  int
	failNotion bool
}

func newFakeServices(t *testing.T) *fakeServices {
	t.Helper()
	f := &fakeServices{}
	mux := http.NewServeMux()
	mux.HandleFunc("/supadata/transcript", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sd-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "hello world from " + r.URL.Query().Get("url"), "lang": "en"})
	})
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "Talk", "author_name": "Channel"})
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.chatCalls++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "Hello world."}}},
		})
	})
	mux.HandleFunc("/notion/pages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failNotion {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "validation_error", "message": "bad parent"})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.pages = append(f.pages, body)
		_ = json.NewEncoder(w).Encode(map[string]string{"object": "page", "id": fmt.Sprintf("page-%d", len(f.pages))})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeServices) pageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, f *fakeServices, extra string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, key := range []string{"SUPADATA_API_KEY", "NOTION_TOKEN", "NOTION_PARENT_ID", "AI_MODEL", "AI_PROMPT", "OPENAI_API_KEY", "YOUTUBE_API_KEY", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(base, "tubenote.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %[1]q
log_dir = %[2]q

[transcript]
api_key = "sd-key"
base_url = "%[3]s/supadata"
oembed_url = "%[3]s/oembed"

[transform]
model = "gpt-4o-mini"

[llm.openai]
api_key = "oa-key"
base_url = "%[3]s/chat"

[notion]
token = "secret"
parent_id = "parent"
base_url = "%[3]s/notion"
embed_video = false

[logging]
level = "error"
%[4]s`, filepath.Join(base, "data"), filepath.Join(base, "logs"), f.server.URL, extra)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

func TestRunPublishesAndSummarizes(t *testing.T) {
	f := newFakeServices(t)
	env := setupCLITestEnv(t, f, "")

	out, _, err := runCLI(t, []string{"run", "dQw4w9WgXcQ,https://vimeo.com/12345"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Succeeded")
	requireContains(t, out, "Skipped")
	requireContains(t, out, "1 succeeded, 1 skipped, 0 failed")
	if got := f.pageCount(); got != 1 {
		t.Fatalf("expected 1 page, got %d", got)
	}
	if f.chatCalls != 1 {
		t.Fatalf("expected 1 chat call, got %d", f.chatCalls)
	}
}

func TestRunPublishFailureDoesNotFailCommand(t *testing.T) {
	f := newFakeServices(t)
	f.failNotion = true
	env := setupCLITestEnv(t, f, "")

	out, _, err := runCLI(t, []string{"run", "dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("run should not fail on item errors: %v", err)
	}
	requireContains(t, out, "0 succeeded, 0 skipped, 1 failed")
}

func TestRunMissingCredentialIsConfigError(t *testing.T) {
	f := newFakeServices(t)
	env := setupCLITestEnv(t, f, "")
	raw, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	stripped := strings.Replace(string(raw), `token = "secret"`, `token = ""`, 1)
	if err := os.WriteFile(env.configPath, []byte(stripped), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err = runCLI(t, []string{"run", "dQw4w9WgXcQ"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, err.Error(), "notion.token")
	if f.pageCount() != 0 {
		t.Fatal("no page should be created on configuration error")
	}
}

func TestRunModelOverrideToUnknownFamilyPassesThrough(t *testing.T) {
	f := newFakeServices(t)
	env := setupCLITestEnv(t, f, "")

	out, _, err := runCLI(t, []string{"run", "--model", "llama-3", "dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "untransformed")
	if f.chatCalls != 0 {
		t.Fatalf("expected no chat calls, got %d", f.chatCalls)
	}
}

func TestRunFromCheckpointPublishesPending(t *testing.T) {
	f := newFakeServices(t)
	env := setupCLITestEnv(t, f, "\n[checkpoint]\nenabled = true\n")
	dbPath := filepath.Join(env.baseDir, "data", "checkpoint.db")

	store, err := checkpoint.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.AddDiscovered(context.Background(), []checkpoint.Video{
		{ID: "9bZkp7q19f0", URL: "https://www.youtube.com/watch?v=9bZkp7q19f0", ChannelID: "UC1"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.Close()

	out, _, err := runCLI(t, []string{"run", "--from-checkpoint"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "1 succeeded")

	store, err = checkpoint.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	published, err := store.IsPublished(context.Background(), "9bZkp7q19f0")
	if err != nil || !published {
		t.Fatalf("expected video recorded as published (err=%v)", err)
	}

	out, _, err = runCLI(t, []string{"run", "9bZkp7q19f0"}, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "already published")
	if f.pageCount() != 1 {
		t.Fatalf("expected a single page across runs, got %d", f.pageCount())
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	f := newFakeServices(t)
	env := setupCLITestEnv(t, f, "")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestSplitReferences(t *testing.T) {
	got := splitReferences([]string{"a, b", "", "c,,"})
	want := []string{"a", "b", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("splitReferences = %v, want %v", got, want)
	}
}

func TestRunSummaryShowsOutcomeNote(t *testing.T) {
	run := &pipeline.Run{Outcomes: []pipeline.Outcome{{
		Index:      1,
		VideoID:    "aaaaaaaaaaa",
		Status:     pipeline.StatusSucceeded,
		DocumentID: "page-1",
		Note:       "playlist listing truncated",
	}}}
	out := renderRunSummary(run, false)
	requireContains(t, out, "page-1 (playlist listing truncated)")
}
