// Package llm provides a client for OpenAI-compatible chat completion APIs.
//
// One client type serves every chat family tubenote dispatches to: OpenAI,
// DeepSeek, and OpenRouter differ only in base URL, credentials, and the
// optional attribution headers OpenRouter reads.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send the prompt as system message and the text as user
// message, receive plain text.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries HTTP 408/5xx responses, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 3 attempts by
// default). HTTP 429 is not retried: it is returned wrapped with
// services.ErrRateLimited for the transformer's backoff loop.
package llm
