package transform

import (
	"context"
	"log/slog"
	"time"

	"tubenote/internal/backend"
	"tubenote/internal/config"
	"tubenote/internal/services/gemini"
	"tubenote/internal/services/llm"
)

// NewFromConfig builds a Transformer whose backend table holds the client
// for the configured model's family. An unknown family yields a transformer
// that passes text through.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Transformer, error) {
	backends, err := Backends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(Options{
		Model:       cfg.Transform.Model,
		Prompt:      cfg.Transform.Prompt,
		ChunkSize:   cfg.Transform.ChunkSize,
		MaxAttempts: cfg.Transform.MaxAttempts,
		BackoffBase: time.Duration(cfg.Transform.BackoffBaseSeconds * float64(time.Second)),
		Backends:    backends,
		Logger:      logger,
	}), nil
}

// Backends returns the backend table for cfg. Only the family the model
// resolves to is constructed.
func Backends(ctx context.Context, cfg *config.Config) (map[backend.Family]Backend, error) {
	table := make(map[backend.Family]Backend, 1)
	family := backend.Resolve(cfg.Transform.Model)
	switch family {
	case backend.FamilyOpenAI:
		table[family] = chatClient(cfg.ChatLLM(cfg.LLM.OpenAI))
	case backend.FamilyDeepSeek:
		table[family] = chatClient(cfg.ChatLLM(cfg.LLM.DeepSeek))
	case backend.FamilyOpenRouter:
		table[family] = chatClient(cfg.ChatLLM(cfg.LLM.OpenRouter))
	case backend.FamilyGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:            cfg.LLM.Gemini.APIKey,
			BaseURL:           cfg.LLM.Gemini.BaseURL,
			Model:             cfg.Transform.Model,
			RequestsPerMinute: cfg.LLM.Gemini.RequestsPerMinute,
			TimeoutSeconds:    cfg.LLM.Gemini.TimeoutSeconds,
		})
		if err != nil {
			return nil, err
		}
		table[family] = client
	}
	return table, nil
}

func chatClient(c config.LLMConfig) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		Model:          c.Model,
		Referer:        c.Referer,
		Title:          c.Title,
		TimeoutSeconds: c.TimeoutSeconds,
	})
}
