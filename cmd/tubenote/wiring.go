package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tubenote/internal/checkpoint"
	"tubenote/internal/config"
	"tubenote/internal/notifications"
	"tubenote/internal/pipeline"
	"tubenote/internal/playlist"
	"tubenote/internal/services/notion"
	"tubenote/internal/services/supadata"
	"tubenote/internal/services/youtube"
	"tubenote/internal/transcript"
	"tubenote/internal/transform"
)

// session holds the per-invocation resources that need releasing.
type session struct {
	lock  *checkpoint.Lock
	store *checkpoint.Store
}

// openSession takes the run lock and opens the checkpoint store. With
// requireStore false and checkpoints disabled, neither is touched.
func openSession(ctx context.Context, cfg *config.Config, requireStore bool) (*session, error) {
	s := &session{}
	if !cfg.Checkpoint.Enabled && !requireStore {
		return s, nil
	}
	lock, err := checkpoint.AcquireLock(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	s.lock = lock
	store, err := checkpoint.Open(ctx, cfg.Checkpoint.Path)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	s.store = store
	return s, nil
}

func (s *session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Release())
	}
	return errors.Join(errs...)
}

// newRunner wires the pipeline from configuration. store may be nil.
func newRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger, store *checkpoint.Store) (*pipeline.Runner, error) {
	transcripts := supadata.NewClient(supadata.Config{
		APIKey:         cfg.Transcript.APIKey,
		BaseURL:        cfg.Transcript.BaseURL,
		Language:       cfg.Transcript.Language,
		Mode:           cfg.Transcript.Mode,
		PollInterval:   time.Duration(cfg.Transcript.PollIntervalSeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.Transcript.RequestTimeout) * time.Second,
	}, supadata.WithLogger(logger))
	metadata := youtube.NewOEmbed(cfg.Transcript.OEmbedURL, nil)

	lister, err := youtube.NewLister(ctx, cfg.YouTube, nil)
	if err != nil {
		return nil, err
	}

	transformer, err := transform.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Expander:    playlist.NewExpander(lister, logger),
		Fetcher:     transcript.NewSource(transcripts, metadata, logger),
		Transformer: transformer,
		Publisher:   notion.NewClient(notion.ConfigFrom(cfg.Notion), notion.WithLogger(logger)),
		Notifier:    notifications.NewService(cfg),
		Logger:      logger,
		Workers:     cfg.Pipeline.Workers,
		ItemTimeout: time.Duration(cfg.Pipeline.ItemTimeoutSeconds) * time.Second,
		BlockSize:   cfg.Notion.BlockSize,
	}
	if store != nil {
		opts.Recorder = store
	}
	return pipeline.NewRunner(opts), nil
}
