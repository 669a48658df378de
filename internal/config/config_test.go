package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tubenote/internal/config"
	"tubenote/internal/services"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPADATA_API_KEY", "supa-key")
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("NOTION_PARENT_ID", "1234-abcd")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_MODEL", "")
	t.Setenv("AI_PROMPT", "")
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	setRequiredEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "tubenote")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Checkpoint.Path != filepath.Join(wantData, "checkpoint.db") {
		t.Fatalf("unexpected checkpoint path: %q", cfg.Checkpoint.Path)
	}
	if cfg.Transcript.APIKey != "supa-key" {
		t.Fatalf("expected transcript key from env, got %q", cfg.Transcript.APIKey)
	}
	if cfg.Notion.ParentID != "1234abcd" {
		t.Fatalf("expected dashes stripped from parent id, got %q", cfg.Notion.ParentID)
	}
	if cfg.Transform.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected default model %q", cfg.Transform.Model)
	}
	if cfg.Transform.Prompt != "Format the transcript into paragraphs with punctuation." {
		t.Fatalf("unexpected default prompt %q", cfg.Transform.Prompt)
	}
	if cfg.Transform.ChunkSize != 3000 || cfg.Transform.MaxAttempts != 5 {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.Transform)
	}
	if cfg.Notion.BlockSize != 2000 {
		t.Fatalf("unexpected block size %d", cfg.Notion.BlockSize)
	}
	if cfg.Transcript.PollIntervalSeconds != 5 {
		t.Fatalf("unexpected poll interval %d", cfg.Transcript.PollIntervalSeconds)
	}
	if cfg.Transcript.Language != "pt" {
		t.Fatalf("unexpected language %q", cfg.Transcript.Language)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tubenote.toml")

	type payload struct {
		Transform struct {
			Model     string `toml:"model"`
			ChunkSize int    `toml:"chunk_size"`
		} `toml:"transform"`
		LLM struct {
			Gemini struct {
				APIKey string `toml:"api_key"`
			} `toml:"gemini"`
		} `toml:"llm"`
		Notion struct {
			ParentType string `toml:"parent_type"`
		} `toml:"notion"`
		Transcript struct {
			Language string `toml:"language"`
		} `toml:"transcript"`
		Watch struct {
			Channels []config.Channel `toml:"channels"`
		} `toml:"watch"`
	}
	custom := payload{}
	custom.Transform.Model = "gemini-2.0-flash"
	custom.Transform.ChunkSize = 1200
	custom.LLM.Gemini.APIKey = "g-key"
	custom.Notion.ParentType = "Database"
	custom.Transcript.Language = "en-us"
	custom.Watch.Channels = []config.Channel{{ID: " UC1 "}, {ID: "UC1", Name: "dup"}, {ID: ""}, {ID: "UC2", Name: "Two"}}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Transform.Model != "gemini-2.0-flash" || cfg.Transform.ChunkSize != 1200 {
		t.Fatalf("unexpected transform section: %+v", cfg.Transform)
	}
	if cfg.Notion.ParentType != "database" {
		t.Fatalf("expected lowercased parent type, got %q", cfg.Notion.ParentType)
	}
	if cfg.Transcript.Language != "en-US" {
		t.Fatalf("expected canonical language tag, got %q", cfg.Transcript.Language)
	}
	if len(cfg.Watch.Channels) != 2 {
		t.Fatalf("expected deduplicated channels, got %+v", cfg.Watch.Channels)
	}
	if cfg.Watch.Channels[0].Name != "UC1" || cfg.Watch.Channels[1].Name != "Two" {
		t.Fatalf("unexpected channel names: %+v", cfg.Watch.Channels)
	}
}

func TestValidateMissingCredentialsIsConfigurationError(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"transcript key", func(c *config.Config) { c.Transcript.APIKey = "" }, "transcript.api_key"},
		{"notion token", func(c *config.Config) { c.Notion.Token = "" }, "notion.token"},
		{"notion parent", func(c *config.Config) { c.Notion.ParentID = "" }, "notion.parent_id"},
		{"model", func(c *config.Config) { c.Transform.Model = "" }, "transform.model"},
		{"family key", func(c *config.Config) { c.Transform.Model = "deepseek-chat" }, "llm.deepseek.api_key"},
		{"parent type", func(c *config.Config) { c.Notion.ParentType = "workspace" }, "notion.parent_type"},
		{"block size", func(c *config.Config) { c.Notion.BlockSize = 2001 }, "notion.block_size"},
		{"workers", func(c *config.Config) { c.Pipeline.Workers = 0 }, "pipeline.workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestValidateAcceptsUnknownModelFamily(t *testing.T) {
	cfg := validConfig()
	cfg.Transform.Model = "unknown-1"
	cfg.LLM.OpenAI.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected unknown model to pass validation, got %v", err)
	}
}

func TestChatLLMCarriesTransformModel(t *testing.T) {
	cfg := validConfig()
	cfg.Transform.Model = "deepseek-chat"
	cfg.LLM.DeepSeek.APIKey = " ds-key "
	llm := cfg.ChatLLM(cfg.LLM.DeepSeek)
	if llm.Model != "deepseek-chat" || llm.APIKey != "ds-key" {
		t.Fatalf("unexpected llm config: %+v", llm)
	}
	if llm.BaseURL != config.Default().LLM.DeepSeek.BaseURL {
		t.Fatalf("unexpected base url %q", llm.BaseURL)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Transform.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected sample model %q", cfg.Transform.Model)
	}
	if cfg.Checkpoint.Enabled {
		t.Fatal("expected checkpoint disabled in sample")
	}
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Transcript.APIKey = "supa"
	cfg.Notion.Token = "secret"
	cfg.Notion.ParentID = "parent"
	cfg.Transform.Model = "gpt-4o-mini"
	cfg.Transform.Prompt = "p"
	cfg.LLM.OpenAI.APIKey = "sk"
	return cfg
}
