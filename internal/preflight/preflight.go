package preflight

import (
	"context"
	"strings"

	"tubenote/internal/backend"
	"tubenote/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg, in display order.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckKey("Transcript provider", cfg.Transcript.APIKey),
		CheckNotion(ctx, cfg.Notion),
	}

	family := backend.Resolve(cfg.Transform.Model)
	name := "Transform model (" + strings.TrimSpace(cfg.Transform.Model) + ")"
	switch family {
	case backend.FamilyOpenAI:
		results = append(results, CheckLLM(ctx, name, cfg.ChatLLM(cfg.LLM.OpenAI)))
	case backend.FamilyDeepSeek:
		results = append(results, CheckLLM(ctx, name, cfg.ChatLLM(cfg.LLM.DeepSeek)))
	case backend.FamilyOpenRouter:
		results = append(results, CheckLLM(ctx, name, cfg.ChatLLM(cfg.LLM.OpenRouter)))
	case backend.FamilyGemini:
		results = append(results, CheckKey(name, cfg.LLM.Gemini.APIKey))
	default:
		results = append(results, Result{Name: name, Detail: "unknown model family (transcripts pass through untransformed)"})
	}

	if strings.TrimSpace(cfg.YouTube.APIKey) != "" {
		results = append(results, CheckKey("YouTube Data API", cfg.YouTube.APIKey))
	} else {
		results = append(results, Result{Name: "YouTube Data API", Passed: true, Detail: "not configured (using public feeds)"})
	}
	return results
}
