package transform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tubenote/internal/backend"
	"tubenote/internal/services"
)

type scriptedBackend struct {
	mu      sync.Mutex
	calls   []string
	respond func(call int, text string) (string, error)
}

func (b *scriptedBackend) Complete(_ context.Context, _ string, text string) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, text)
	call := len(b.calls)
	b.mu.Unlock()
	return b.respond(call, text)
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestTransformer(model string, b Backend, sleeper *sleepRecorder, chunkSize int) *Transformer {
	return New(Options{
		Model:     model,
		Prompt:    "Format the transcript.",
		ChunkSize: chunkSize,
		Backends: map[backend.Family]Backend{
			backend.Resolve(model): b,
		},
		Sleep:  sleeper.sleep,
		Jitter: func() time.Duration { return 250 * time.Millisecond },
	})
}

func rateLimited() error {
	return services.Wrap(services.ErrRateLimited, "test", "complete", "", errors.New("429"))
}

func TestTransformUppercasesThroughBackend(t *testing.T) {
	b := &scriptedBackend{respond: func(_ int, text string) (string, error) {
		return strings.ToUpper(text), nil
	}}
	tr := newTestTransformer("gpt-4o-mini", b, &sleepRecorder{}, 0)

	out, report := tr.TransformWithReport(context.Background(), "hello world")
	require.Equal(t, "HELLO WORLD", out)
	require.Equal(t, backend.FamilyOpenAI, report.Family)
	require.Equal(t, 1, report.Chunks)
	require.False(t, report.Passthrough())
	require.NoError(t, report.Err)
}

func TestTransformChunksLongText(t *testing.T) {
	b := &scriptedBackend{respond: func(_ int, text string) (string, error) {
		return "[" + text + "]", nil
	}}
	tr := newTestTransformer("deepseek-chat", b, &sleepRecorder{}, 4)

	out := tr.Transform(context.Background(), "abcdefghij")
	require.Equal(t, []string{"abcd", "efgh", "ij"}, b.calls)
	require.Equal(t, "[abcd]\n[efgh]\n[ij]", out)
}

func TestTransformRetriesRateLimitWithBackoff(t *testing.T) {
	b := &scriptedBackend{respond: func(call int, text string) (string, error) {
		if call < 3 {
			return "", rateLimited()
		}
		return "done", nil
	}}
	sleeper := &sleepRecorder{}
	tr := newTestTransformer("gemini-2.0-flash", b, sleeper, 0)

	out, report := tr.TransformWithReport(context.Background(), "text")
	require.Equal(t, "done", out)
	require.Equal(t, 2, report.Retries)
	require.Equal(t, []time.Duration{
		2*time.Second + 250*time.Millisecond,
		4*time.Second + 250*time.Millisecond,
	}, sleeper.delays)
}

func TestTransformGivesUpAfterMaxAttempts(t *testing.T) {
	b := &scriptedBackend{respond: func(int, string) (string, error) {
		return "", rateLimited()
	}}
	sleeper := &sleepRecorder{}
	tr := newTestTransformer("openai/gpt-4o", b, sleeper, 0)

	out, report := tr.TransformWithReport(context.Background(), "original")
	require.Equal(t, "original", out)
	require.Len(t, b.calls, DefaultMaxAttempts)
	require.Len(t, sleeper.delays, DefaultMaxAttempts-1)
	require.ErrorIs(t, report.Err, services.ErrRateLimited)
	require.True(t, report.Passthrough())
}

func TestTransformDoesNotRetryOtherErrors(t *testing.T) {
	b := &scriptedBackend{respond: func(_ int, text string) (string, error) {
		if text == "bbbb" {
			return "", services.Wrap(services.ErrExternalService, "test", "complete", "bad request", nil)
		}
		return strings.ToUpper(text), nil
	}}
	sleeper := &sleepRecorder{}
	tr := newTestTransformer("gpt-4o-mini", b, sleeper, 4)

	out, report := tr.TransformWithReport(context.Background(), "aaaabbbbcccc")
	require.Equal(t, "AAAA\nbbbb\nCCCC", out)
	require.Len(t, b.calls, 3)
	require.Empty(t, sleeper.delays)
	require.Equal(t, 2, report.Transformed)
	require.ErrorIs(t, report.Err, services.ErrExternalService)
}

func TestTransformTreatsEmptyOutputAsFailure(t *testing.T) {
	b := &scriptedBackend{respond: func(int, string) (string, error) {
		return "   ", nil
	}}
	tr := newTestTransformer("gpt-4o-mini", b, &sleepRecorder{}, 0)

	out, report := tr.TransformWithReport(context.Background(), "keep me")
	require.Equal(t, "keep me", out)
	require.Len(t, b.calls, 1)
	require.Error(t, report.Err)
}

func TestTransformUnknownModelPassesThrough(t *testing.T) {
	b := &scriptedBackend{respond: func(int, string) (string, error) {
		t.Fatal("backend must not be called")
		return "", nil
	}}
	tr := New(Options{
		Model:    "llama-3",
		Backends: map[backend.Family]Backend{backend.FamilyOpenAI: b},
	})

	out, report := tr.TransformWithReport(context.Background(), "unchanged")
	require.Equal(t, "unchanged", out)
	require.Equal(t, backend.FamilyUnknown, tr.Family())
	require.ErrorIs(t, report.Err, services.ErrUnsupportedBackend)
	require.Empty(t, b.calls)
}

func TestTransformStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	b := &scriptedBackend{respond: func(int, string) (string, error) {
		return "", rateLimited()
	}}
	ctx, cancel := context.WithCancel(context.Background())
	tr := New(Options{
		Model:    "gpt-4o-mini",
		Backends: map[backend.Family]Backend{backend.FamilyOpenAI: b},
		Sleep: func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		},
	})

	out, report := tr.TransformWithReport(ctx, "text")
	require.Equal(t, "text", out)
	require.Len(t, b.calls, 1)
	require.ErrorIs(t, report.Err, context.Canceled)
}

func TestSplitReconstructsText(t *testing.T) {
	text := strings.Repeat("ação ", 1234)
	for _, size := range []int{1, 7, 100, 3000, 10000} {
		chunks := Split(text, size)
		require.Equal(t, text, strings.Join(chunks, ""), "size %d", size)
		for _, chunk := range chunks {
			require.LessOrEqual(t, len([]rune(chunk)), size)
		}
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	tr := New(Options{Model: "gpt-4o", Jitter: func() time.Duration { return 0 }})
	require.Equal(t, 2*time.Second, tr.Backoff(1))
	require.Equal(t, 4*time.Second, tr.Backoff(2))
	require.Equal(t, 16*time.Second, tr.Backoff(4))
}
