package config

const (
	defaultConfigPath           = "~/.config/tubenote/config.toml"
	defaultDataDir              = "~/.local/share/tubenote"
	defaultLogDir               = "~/.local/share/tubenote/logs"
	defaultCheckpointFile       = "checkpoint.db"
	defaultTranscriptBaseURL    = "https://api.supadata.ai/v1"
	defaultTranscriptLanguage   = "pt"
	defaultTranscriptMode       = "auto"
	defaultPollIntervalSeconds  = 5
	defaultTranscriptTimeout    = 60
	defaultOEmbedURL            = "https://www.youtube.com/oembed"
	defaultFeedBaseURL          = "https://www.youtube.com/feeds/videos.xml"
	defaultYouTubeMaxItems      = 500
	defaultModel                = "gpt-4o-mini"
	defaultPrompt               = "Format the transcript into paragraphs with punctuation."
	defaultChunkSize            = 3000
	defaultMaxAttempts          = 5
	defaultBackoffBaseSeconds   = 2
	defaultOpenAIBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultDeepSeekBaseURL      = "https://api.deepseek.com/chat/completions"
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterReferer    = "https://github.com/tubenote/tubenote"
	defaultOpenRouterTitle      = "tubenote"
	defaultLLMTimeoutSeconds    = 120
	defaultGeminiRPM            = 15
	defaultNotionParentType     = "page"
	defaultNotionTitleProperty  = "title"
	defaultNotionVersion        = "2022-06-28"
	defaultNotionBaseURL        = "https://api.notion.com/v1"
	defaultNotionRPS            = 3
	defaultNotionBlockSize      = 2000
	defaultNotionTimeoutSeconds = 30
	defaultWorkers              = 1
	defaultWatchLookbackDays    = 7
	defaultWatchMaxResults      = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Transcript: Transcript{
			BaseURL:             defaultTranscriptBaseURL,
			Language:            defaultTranscriptLanguage,
			Mode:                defaultTranscriptMode,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			RequestTimeout:      defaultTranscriptTimeout,
			OEmbedURL:           defaultOEmbedURL,
		},
		YouTube: YouTube{
			FeedBaseURL: defaultFeedBaseURL,
			MaxItems:    defaultYouTubeMaxItems,
		},
		Transform: Transform{
			ChunkSize:          defaultChunkSize,
			MaxAttempts:        defaultMaxAttempts,
			BackoffBaseSeconds: defaultBackoffBaseSeconds,
		},
		LLM: LLM{
			OpenAI: ChatProvider{
				BaseURL:        defaultOpenAIBaseURL,
				TimeoutSeconds: defaultLLMTimeoutSeconds,
			},
			DeepSeek: ChatProvider{
				BaseURL:        defaultDeepSeekBaseURL,
				TimeoutSeconds: defaultLLMTimeoutSeconds,
			},
			OpenRouter: ChatProvider{
				BaseURL:        defaultOpenRouterBaseURL,
				Referer:        defaultOpenRouterReferer,
				Title:          defaultOpenRouterTitle,
				TimeoutSeconds: defaultLLMTimeoutSeconds,
			},
			Gemini: Gemini{
				RequestsPerMinute: defaultGeminiRPM,
				TimeoutSeconds:    defaultLLMTimeoutSeconds,
			},
		},
		Notion: Notion{
			ParentType:        defaultNotionParentType,
			TitleProperty:     defaultNotionTitleProperty,
			Version:           defaultNotionVersion,
			BaseURL:           defaultNotionBaseURL,
			RequestsPerSecond: defaultNotionRPS,
			BlockSize:         defaultNotionBlockSize,
			EmbedVideo:        true,
			TimeoutSeconds:    defaultNotionTimeoutSeconds,
		},
		Pipeline: Pipeline{
			Workers: defaultWorkers,
		},
		Watch: Watch{
			LookbackDays: defaultWatchLookbackDays,
			MaxResults:   defaultWatchMaxResults,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			RunStarted:     true,
			RunCompleted:   true,
			ItemFailures:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
