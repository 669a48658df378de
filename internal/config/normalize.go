package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTranscript(); err != nil {
		return err
	}
	c.normalizeYouTube()
	c.normalizeTransform()
	c.normalizeLLM()
	c.normalizeNotion()
	if err := c.normalizeCheckpoint(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscript() error {
	c.Transcript.APIKey = envFallback(c.Transcript.APIKey, "SUPADATA_API_KEY")
	c.Transcript.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcript.BaseURL), "/")
	if c.Transcript.BaseURL == "" {
		c.Transcript.BaseURL = defaultTranscriptBaseURL
	}
	c.Transcript.Mode = strings.ToLower(strings.TrimSpace(c.Transcript.Mode))
	if c.Transcript.Mode == "" {
		c.Transcript.Mode = defaultTranscriptMode
	}
	lang := strings.TrimSpace(c.Transcript.Language)
	if lang == "" {
		lang = defaultTranscriptLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("transcript.language %q: %w", lang, err)
	}
	c.Transcript.Language = tag.String()
	if c.Transcript.PollIntervalSeconds <= 0 {
		c.Transcript.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Transcript.RequestTimeout <= 0 {
		c.Transcript.RequestTimeout = defaultTranscriptTimeout
	}
	c.Transcript.OEmbedURL = strings.TrimSpace(c.Transcript.OEmbedURL)
	if c.Transcript.OEmbedURL == "" {
		c.Transcript.OEmbedURL = defaultOEmbedURL
	}
	return nil
}

func (c *Config) normalizeYouTube() {
	c.YouTube.APIKey = envFallback(c.YouTube.APIKey, "YOUTUBE_API_KEY")
	c.YouTube.APIEndpoint = strings.TrimSpace(c.YouTube.APIEndpoint)
	c.YouTube.FeedBaseURL = strings.TrimSpace(c.YouTube.FeedBaseURL)
	if c.YouTube.FeedBaseURL == "" {
		c.YouTube.FeedBaseURL = defaultFeedBaseURL
	}
	if c.YouTube.MaxItems <= 0 {
		c.YouTube.MaxItems = defaultYouTubeMaxItems
	}
}

func (c *Config) normalizeTransform() {
	c.Transform.Model = envFallback(c.Transform.Model, "AI_MODEL")
	if c.Transform.Model == "" {
		c.Transform.Model = defaultModel
	}
	// The prompt keeps its inner whitespace; only an all-blank value falls back.
	if strings.TrimSpace(c.Transform.Prompt) == "" {
		if value, ok := os.LookupEnv("AI_PROMPT"); ok && strings.TrimSpace(value) != "" {
			c.Transform.Prompt = value
		} else {
			c.Transform.Prompt = defaultPrompt
		}
	}
	if c.Transform.ChunkSize == 0 {
		c.Transform.ChunkSize = defaultChunkSize
	}
	if c.Transform.MaxAttempts == 0 {
		c.Transform.MaxAttempts = defaultMaxAttempts
	}
	if c.Transform.BackoffBaseSeconds == 0 {
		c.Transform.BackoffBaseSeconds = defaultBackoffBaseSeconds
	}
}

func (c *Config) normalizeLLM() {
	normalizeChatProvider(&c.LLM.OpenAI, defaultOpenAIBaseURL, "OPENAI_API_KEY")
	normalizeChatProvider(&c.LLM.DeepSeek, defaultDeepSeekBaseURL, "DEEPSEEK_API_KEY")
	normalizeChatProvider(&c.LLM.OpenRouter, defaultOpenRouterBaseURL, "OPENROUTER_API_KEY")
	if c.LLM.OpenRouter.Referer == "" {
		c.LLM.OpenRouter.Referer = defaultOpenRouterReferer
	}
	if c.LLM.OpenRouter.Title == "" {
		c.LLM.OpenRouter.Title = defaultOpenRouterTitle
	}

	c.LLM.Gemini.APIKey = envFallback(c.LLM.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	c.LLM.Gemini.BaseURL = strings.TrimSpace(c.LLM.Gemini.BaseURL)
	if c.LLM.Gemini.RequestsPerMinute <= 0 {
		c.LLM.Gemini.RequestsPerMinute = defaultGeminiRPM
	}
	if c.LLM.Gemini.TimeoutSeconds <= 0 {
		c.LLM.Gemini.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func normalizeChatProvider(p *ChatProvider, baseURL string, envKeys ...string) {
	p.APIKey = envFallback(p.APIKey, envKeys...)
	p.BaseURL = strings.TrimSpace(p.BaseURL)
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	p.Referer = strings.TrimSpace(p.Referer)
	p.Title = strings.TrimSpace(p.Title)
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeNotion() {
	c.Notion.Token = envFallback(c.Notion.Token, "NOTION_TOKEN", "NOTION_API_KEY")
	c.Notion.ParentID = envFallback(c.Notion.ParentID, "NOTION_PARENT_ID", "NOTION_PAGE_ID")
	c.Notion.ParentID = strings.ReplaceAll(c.Notion.ParentID, "-", "")
	c.Notion.ParentType = strings.ToLower(strings.TrimSpace(c.Notion.ParentType))
	if c.Notion.ParentType == "" {
		c.Notion.ParentType = defaultNotionParentType
	}
	c.Notion.TitleProperty = strings.TrimSpace(c.Notion.TitleProperty)
	if c.Notion.TitleProperty == "" {
		c.Notion.TitleProperty = defaultNotionTitleProperty
	}
	c.Notion.Version = strings.TrimSpace(c.Notion.Version)
	if c.Notion.Version == "" {
		c.Notion.Version = defaultNotionVersion
	}
	c.Notion.BaseURL = strings.TrimRight(strings.TrimSpace(c.Notion.BaseURL), "/")
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = defaultNotionBaseURL
	}
	if c.Notion.RequestsPerSecond <= 0 {
		c.Notion.RequestsPerSecond = defaultNotionRPS
	}
	if c.Notion.BlockSize == 0 {
		c.Notion.BlockSize = defaultNotionBlockSize
	}
	if c.Notion.TimeoutSeconds <= 0 {
		c.Notion.TimeoutSeconds = defaultNotionTimeoutSeconds
	}
}

func (c *Config) normalizeCheckpoint() error {
	var err error
	if strings.TrimSpace(c.Checkpoint.Path) == "" {
		c.Checkpoint.Path = filepath.Join(c.Paths.DataDir, defaultCheckpointFile)
	}
	if c.Checkpoint.Path, err = expandPath(c.Checkpoint.Path); err != nil {
		return fmt.Errorf("checkpoint.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() {
	if c.Watch.LookbackDays <= 0 {
		c.Watch.LookbackDays = defaultWatchLookbackDays
	}
	if c.Watch.MaxResults <= 0 {
		c.Watch.MaxResults = defaultWatchMaxResults
	}
	channels := make([]Channel, 0, len(c.Watch.Channels))
	seen := make(map[string]struct{}, len(c.Watch.Channels))
	for _, ch := range c.Watch.Channels {
		ch.ID = strings.TrimSpace(ch.ID)
		ch.Name = strings.TrimSpace(ch.Name)
		if ch.ID == "" {
			continue
		}
		if _, exists := seen[ch.ID]; exists {
			continue
		}
		seen[ch.ID] = struct{}{}
		if ch.Name == "" {
			ch.Name = ch.ID
		}
		channels = append(channels, ch)
	}
	c.Watch.Channels = channels
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = envFallback(c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envFallback returns the trimmed current value, or the first non-empty
// environment variable among keys when current is blank.
func envFallback(current string, keys ...string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		return current
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
