package config

import (
	"errors"
	"fmt"
	"strings"

	"tubenote/internal/backend"
	"tubenote/internal/services"
)

// Validate ensures the configuration is usable. Every returned error carries
// services.ErrConfiguration so callers can abort before any network call.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateTranscript,
		c.validateTransform,
		c.validateBackendCredentials,
		c.validateNotion,
		c.validatePipeline,
		c.validateWatch,
	} {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
		}
	}
	return nil
}

func (c *Config) validateTranscript() error {
	if c.Transcript.APIKey == "" {
		return missingCredential("transcript.api_key", "SUPADATA_API_KEY")
	}
	if c.Transcript.PollIntervalSeconds <= 0 {
		return errors.New("transcript.poll_interval_seconds must be positive")
	}
	if c.Transcript.RequestTimeout <= 0 {
		return errors.New("transcript.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateTransform() error {
	if strings.TrimSpace(c.Transform.Model) == "" {
		return missingCredential("transform.model", "AI_MODEL")
	}
	if c.Transform.ChunkSize <= 0 {
		return errors.New("transform.chunk_size must be positive")
	}
	if c.Transform.MaxAttempts <= 0 {
		return errors.New("transform.max_attempts must be positive")
	}
	if c.Transform.BackoffBaseSeconds < 0 {
		return errors.New("transform.backoff_base_seconds must be >= 0")
	}
	return nil
}

// validateBackendCredentials requires the key of the family the configured
// model resolves to. Unknown families are not a configuration error: those
// items pass their transcript through untransformed.
func (c *Config) validateBackendCredentials() error {
	switch backend.Resolve(c.Transform.Model) {
	case backend.FamilyOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return missingCredential("llm.openai.api_key", "OPENAI_API_KEY")
		}
	case backend.FamilyDeepSeek:
		if c.LLM.DeepSeek.APIKey == "" {
			return missingCredential("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
		}
	case backend.FamilyOpenRouter:
		if c.LLM.OpenRouter.APIKey == "" {
			return missingCredential("llm.openrouter.api_key", "OPENROUTER_API_KEY")
		}
	case backend.FamilyGemini:
		if c.LLM.Gemini.APIKey == "" {
			return missingCredential("llm.gemini.api_key", "GEMINI_API_KEY")
		}
	}
	return nil
}

func (c *Config) validateNotion() error {
	if c.Notion.Token == "" {
		return missingCredential("notion.token", "NOTION_TOKEN")
	}
	if c.Notion.ParentID == "" {
		return missingCredential("notion.parent_id", "NOTION_PARENT_ID")
	}
	switch c.Notion.ParentType {
	case "page", "database":
	default:
		return fmt.Errorf("notion.parent_type must be \"page\" or \"database\", got %q", c.Notion.ParentType)
	}
	if c.Notion.BlockSize <= 0 || c.Notion.BlockSize > defaultNotionBlockSize {
		return fmt.Errorf("notion.block_size must be between 1 and %d", defaultNotionBlockSize)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be >= 1")
	}
	if c.Pipeline.ItemTimeoutSeconds < 0 {
		return errors.New("pipeline.item_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.MaxResults > 50 {
		return errors.New("watch.max_results must be <= 50")
	}
	return nil
}

func missingCredential(key, env string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("%s is required. Set %s env var or edit %s (create with 'tubenote config init')", key, env, defaultPath)
}
