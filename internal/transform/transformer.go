package transform

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"tubenote/internal/backend"
	"tubenote/internal/logging"
	"tubenote/internal/services"
)

const (
	DefaultChunkSize   = 3000
	DefaultMaxAttempts = 5
	DefaultBackoffBase = 2 * time.Second
)

// Backend generates text for one chunk. Implementations report quota
// rejections with services.ErrRateLimited.
type Backend interface {
	Complete(ctx context.Context, prompt, text string) (string, error)
}

// Options configures a Transformer.
type Options struct {
	Model       string
	Prompt      string
	ChunkSize   int
	MaxAttempts int
	BackoffBase time.Duration
	Backends    map[backend.Family]Backend
	Logger      *slog.Logger

	// Sleep and Jitter default to a context-aware timer and a uniform
	// [0,1s) draw.
	Sleep  func(context.Context, time.Duration) error
	Jitter func() time.Duration
}

// Report describes what happened to one Transform call.
type Report struct {
	Family      backend.Family
	Chunks      int
	Transformed int
	Retries     int
	// Err is the first error that caused a chunk (or the whole text) to pass
	// through unchanged.
	Err error
}

// Passthrough reports whether any part of the output is untransformed input.
func (r Report) Passthrough() bool {
	return r.Transformed < r.Chunks
}

// Transformer rewrites transcript text through the backend selected by the
// model identifier.
type Transformer struct {
	model       string
	prompt      string
	family      backend.Family
	backend     Backend
	chunkSize   int
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
	sleep       func(context.Context, time.Duration) error
	jitter      func() time.Duration
}

// New resolves the model family once and binds the matching backend.
func New(opts Options) *Transformer {
	t := &Transformer{
		model:       strings.TrimSpace(opts.Model),
		prompt:      opts.Prompt,
		family:      backend.Resolve(opts.Model),
		chunkSize:   opts.ChunkSize,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		logger:      logging.NewComponentLogger(opts.Logger, "transform"),
		sleep:       opts.Sleep,
		jitter:      opts.Jitter,
	}
	if t.chunkSize <= 0 {
		t.chunkSize = DefaultChunkSize
	}
	if t.maxAttempts <= 0 {
		t.maxAttempts = DefaultMaxAttempts
	}
	if t.backoffBase <= 0 {
		t.backoffBase = DefaultBackoffBase
	}
	if t.sleep == nil {
		t.sleep = sleepContext
	}
	if t.jitter == nil {
		t.jitter = func() time.Duration { return rand.N(time.Second) }
	}
	if opts.Backends != nil {
		t.backend = opts.Backends[t.family]
	}
	return t
}

// Family returns the provider family the model resolved to.
func (t *Transformer) Family() backend.Family {
	return t.family
}

// Model returns the configured model identifier.
func (t *Transformer) Model() string {
	return t.model
}

// Transform returns the rewritten text. It never fails: any chunk that
// cannot be transformed is carried through unchanged.
func (t *Transformer) Transform(ctx context.Context, text string) string {
	out, _ := t.TransformWithReport(ctx, text)
	return out
}

// TransformWithReport behaves like Transform and also reports per-chunk
// results.
func (t *Transformer) TransformWithReport(ctx context.Context, text string) (string, Report) {
	report := Report{Family: t.family}
	if text == "" {
		return text, report
	}
	logger := logging.WithContext(ctx, t.logger)

	chunks := Split(text, t.chunkSize)
	report.Chunks = len(chunks)

	if t.backend == nil {
		report.Err = services.Wrap(services.ErrUnsupportedBackend, "transform", "resolve backend", "no backend for model "+t.model, nil)
		logging.WarnWithContext(logger, "transform skipped; text passed through",
			"transform_passthrough",
			logging.String("model", t.model),
			logging.String("family", t.family.String()),
			logging.Error(report.Err),
			logging.String(logging.FieldErrorHint, "use a gpt, gemini, deepseek, or vendor/model identifier and set its api key"),
			logging.String(logging.FieldImpact, "document contains the raw transcript"),
		)
		return text, report
	}

	results := make([]string, len(chunks))
	for i, chunk := range chunks {
		out, retries, err := t.transformChunk(ctx, chunk)
		report.Retries += retries
		if err != nil {
			if report.Err == nil {
				report.Err = err
			}
			logging.WarnWithContext(logger, "chunk transform failed; original chunk kept",
				"transform_chunk_fallback",
				logging.Int("chunk", i+1),
				logging.Int("chunks", len(chunks)),
				logging.Int("retries", retries),
				logging.Error(err),
				logging.String(logging.FieldImpact, "chunk published untransformed"),
			)
			results[i] = chunk
			continue
		}
		report.Transformed++
		results[i] = out
	}
	logger.Debug("transform finished",
		logging.String("family", t.family.String()),
		logging.Int("chunks", report.Chunks),
		logging.Int("transformed", report.Transformed),
		logging.Int("retries", report.Retries),
	)
	if len(results) == 1 {
		return results[0], report
	}
	return strings.Join(results, "\n"), report
}

// transformChunk calls the backend, retrying only rate-limit failures with
// exponential backoff plus jitter.
func (t *Transformer) transformChunk(ctx context.Context, chunk string) (string, int, error) {
	retries := 0
	for attempt := 1; ; attempt++ {
		out, err := t.backend.Complete(ctx, t.prompt, chunk)
		if err == nil && strings.TrimSpace(out) == "" {
			err = services.Wrap(services.ErrExternalService, "transform", "complete", "empty output", nil)
		}
		if err == nil {
			return out, retries, nil
		}
		if !errors.Is(err, services.ErrRateLimited) || attempt >= t.maxAttempts {
			return "", retries, err
		}
		delay := t.Backoff(attempt)
		t.logger.Debug("rate limited; backing off",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
		)
		if sleepErr := t.sleep(ctx, delay); sleepErr != nil {
			return "", retries, sleepErr
		}
		retries++
	}
}

// Backoff returns the delay before the retry that follows attempt:
// base * 2^(attempt-1) plus jitter.
func (t *Transformer) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := t.backoffBase << (attempt - 1)
	return delay + t.jitter()
}

// Split cuts text into consecutive pieces of at most size runes. Joining the
// pieces reproduces text exactly.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
