package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubenote/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func notionServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "unauthorized", "message": "API token is invalid."})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"object": "user", "type": "bot", "name": "tubenote"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckNotion_OK(t *testing.T) {
	srv := notionServer(t, "secret")
	result := CheckNotion(context.Background(), config.Notion{Token: "secret", ParentID: "abc", BaseURL: srv.URL})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "tubenote") {
		t.Fatalf("expected bot name in detail, got %q", result.Detail)
	}
}

func TestCheckNotion_BadToken(t *testing.T) {
	srv := notionServer(t, "secret")
	result := CheckNotion(context.Background(), config.Notion{Token: "wrong", ParentID: "abc", BaseURL: srv.URL})
	if result.Passed {
		t.Fatal("expected failure for bad token")
	}
	if result.Detail != "auth failed (invalid token)" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckNotion_MissingSettings(t *testing.T) {
	if CheckNotion(context.Background(), config.Notion{ParentID: "abc"}).Passed {
		t.Fatal("expected failure for missing token")
	}
	if CheckNotion(context.Background(), config.Notion{Token: "secret"}).Passed {
		t.Fatal("expected failure for missing parent")
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "Transform model", config.LLMConfig{APIKey: "key", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "Transform model", config.LLMConfig{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckKey(t *testing.T) {
	if CheckKey("x", "  ").Passed {
		t.Fatal("expected blank key to fail")
	}
	if !CheckKey("x", "k").Passed {
		t.Fatal("expected key to pass")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_GeminiConfig(t *testing.T) {
	srv := notionServer(t, "secret")
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Transcript.APIKey = "sd"
	cfg.Notion.Token = "secret"
	cfg.Notion.ParentID = "abc"
	cfg.Notion.BaseURL = srv.URL
	cfg.Transform.Model = "gemini-2.0-flash"
	cfg.LLM.Gemini.APIKey = "gk"
	cfg.YouTube.APIKey = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_UnknownModelFails(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Transform.Model = "mystery-model"

	results := RunAll(context.Background(), &cfg)
	var found bool
	for _, r := range results {
		if strings.HasPrefix(r.Name, "Transform model") {
			found = true
			if r.Passed {
				t.Fatal("expected unknown model check to fail")
			}
		}
	}
	if !found {
		t.Fatal("expected transform model check")
	}
}
