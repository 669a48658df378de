// Package backend resolves a model identifier to the text-generation provider
// family that serves it.
package backend

import "strings"

// Family identifies a text-generation provider.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyOpenAI
	FamilyGemini
	FamilyDeepSeek
	FamilyOpenRouter
)

var openAIPrefixes = []string{"gpt", "chatgpt", "o1", "o3", "o4"}

// Resolve maps a model identifier to its provider family by prefix. A
// vendor-qualified identifier ("vendor/model") routes through OpenRouter; the
// Gemini resource form "models/<name>" resolves by its name.
func Resolve(model string) Family {
	m := strings.ToLower(strings.TrimSpace(model))
	m = strings.TrimPrefix(m, "models/")
	if m == "" {
		return FamilyUnknown
	}
	if strings.Contains(m, "/") {
		return FamilyOpenRouter
	}
	for _, prefix := range openAIPrefixes {
		if strings.HasPrefix(m, prefix) {
			return FamilyOpenAI
		}
	}
	switch {
	case strings.HasPrefix(m, "gemini"):
		return FamilyGemini
	case strings.HasPrefix(m, "deepseek"):
		return FamilyDeepSeek
	}
	return FamilyUnknown
}

func (f Family) String() string {
	switch f {
	case FamilyOpenAI:
		return "openai"
	case FamilyGemini:
		return "gemini"
	case FamilyDeepSeek:
		return "deepseek"
	case FamilyOpenRouter:
		return "openrouter"
	default:
		return "unknown"
	}
}

// Known reports whether the family maps to a provider.
func (f Family) Known() bool {
	return f != FamilyUnknown
}
