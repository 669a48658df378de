package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Transcript contains configuration for the transcript provider and the
// oEmbed metadata lookup.
type Transcript struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	Language            string `toml:"language"`
	Mode                string `toml:"mode"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	RequestTimeout      int    `toml:"request_timeout"`
	OEmbedURL           string `toml:"oembed_url"`
}

// YouTube contains configuration for playlist and channel listing.
// Without an API key the public Atom feeds are used instead.
type YouTube struct {
	APIKey      string `toml:"api_key"`
	APIEndpoint string `toml:"api_endpoint"`
	FeedBaseURL string `toml:"feed_base_url"`
	MaxItems    int    `toml:"max_items"`
}

// Transform contains the model selection and chunking settings for the text
// transformation step.
type Transform struct {
	Model              string  `toml:"model"`
	Prompt             string  `toml:"prompt"`
	ChunkSize          int     `toml:"chunk_size"`
	MaxAttempts        int     `toml:"max_attempts"`
	BackoffBaseSeconds float64 `toml:"backoff_base_seconds"`
}

// ChatProvider contains connection settings for an OpenAI-compatible
// chat completions endpoint.
type ChatProvider struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains connection settings for the Gemini API.
type Gemini struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// LLM groups the provider families a model identifier can resolve to.
type LLM struct {
	OpenAI     ChatProvider `toml:"openai"`
	DeepSeek   ChatProvider `toml:"deepseek"`
	OpenRouter ChatProvider `toml:"openrouter"`
	Gemini     Gemini       `toml:"gemini"`
}

// Notion contains configuration for the document workspace.
type Notion struct {
	Token             string  `toml:"token"`
	ParentID          string  `toml:"parent_id"`
	ParentType        string  `toml:"parent_type"`
	TitleProperty     string  `toml:"title_property"`
	Version           string  `toml:"version"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	BlockSize         int     `toml:"block_size"`
	EmbedVideo        bool    `toml:"embed_video"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Pipeline contains run-level execution settings.
type Pipeline struct {
	Workers            int `toml:"workers"`
	ItemTimeoutSeconds int `toml:"item_timeout_seconds"`
}

// Checkpoint contains configuration for the local store of discovered and
// published videos.
type Checkpoint struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Channel is one watched channel.
type Channel struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Watch contains configuration for channel discovery.
type Watch struct {
	LookbackDays int       `toml:"lookback_days"`
	MaxResults   int       `toml:"max_results"`
	Channels     []Channel `toml:"channels"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
	ItemFailures   bool   `toml:"item_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tubenote.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Transcript: transcript provider and oEmbed metadata
//   - YouTube: playlist and channel listing
//   - Transform: model, prompt, chunking and retry settings
//   - LLM: per-family provider credentials
//   - Notion: document workspace target
//   - Pipeline: worker count and per-item deadline
//   - Checkpoint: local store of seen/published videos
//   - Watch: channels polled for new uploads
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcript    Transcript    `toml:"transcript"`
	YouTube       YouTube       `toml:"youtube"`
	Transform     Transform     `toml:"transform"`
	LLM           LLM           `toml:"llm"`
	Notion        Notion        `toml:"notion"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Checkpoint    Checkpoint    `toml:"checkpoint"`
	Watch         Watch         `toml:"watch"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// projectConfigName is looked up in the working directory when no file
// exists at the default location.
const projectConfigName = "tubenote.toml"

// DefaultConfigPath returns the expanded default config location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the config at path (or the default locations when path is
// empty) and validates it. It also reports the resolved path and whether a
// file was found there; without one, defaults and environment fallbacks apply.
func Load(path string) (*Config, string, bool, error) {
	cfg, resolved, found, err := Parse(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, "", false, err
	}
	return cfg, resolved, found, nil
}

// Parse is Load without validation, for commands that report on an
// incomplete configuration.
func Parse(path string) (*Config, string, bool, error) {
	resolved, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if found {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, found, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// locate resolves the config file. An explicit path is used as given; the
// default location wins over ./tubenote.toml. When nothing exists the
// default location is returned with found=false.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(expanded)
		return expanded, found, err
	}
	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if found, _ := isFile(candidate); found {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates the data and log directories, plus the checkpoint
// database directory when the checkpoint store is enabled.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Checkpoint.Enabled && strings.TrimSpace(c.Checkpoint.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.Checkpoint.Path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the path of the lock file that serializes batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tubenote.lock")
}

// ExpandPath resolves a leading ~ to the home directory and makes the
// result absolute. Empty input stays empty.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the connection settings for the configured transform
// model, resolved against its provider family.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// ChatLLM returns the connection settings of an OpenAI-compatible provider
// section, carrying the configured transform model.
func (c *Config) ChatLLM(provider ChatProvider) LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(provider.APIKey),
		BaseURL:        strings.TrimSpace(provider.BaseURL),
		Model:          strings.TrimSpace(c.Transform.Model),
		Referer:        strings.TrimSpace(provider.Referer),
		Title:          strings.TrimSpace(provider.Title),
		TimeoutSeconds: provider.TimeoutSeconds,
	}
}
