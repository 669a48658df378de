package services

import "context"

// ctxKey scopes the values tubenote stores on a context.
type ctxKey int

const (
	runIDKey ctxKey = iota
	videoIDKey
	itemIndexKey
	stageKey
)

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// WithRunID tags ctx with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, runIDKey)
}

// WithVideoID tags ctx with the canonical video ID being processed.
func WithVideoID(ctx context.Context, id string) context.Context {
	return withString(ctx, videoIDKey, id)
}

// VideoIDFromContext returns the video ID, if any.
func VideoIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, videoIDKey)
}

// WithStage tags ctx with the current pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage name, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithItemIndex tags ctx with the 1-based position of the item in the work
// list. Non-positive indexes are ignored.
func WithItemIndex(ctx context.Context, index int) context.Context {
	if index <= 0 {
		return ctx
	}
	return context.WithValue(ctx, itemIndexKey, index)
}

// ItemIndexFromContext returns the work list position, if any.
func ItemIndexFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	index, ok := ctx.Value(itemIndexKey).(int)
	return index, ok
}
