package watch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tubenote/internal/checkpoint"
	"tubenote/internal/config"
	"tubenote/internal/logging"
	"tubenote/internal/notifications"
	"tubenote/internal/services"
	"tubenote/internal/services/youtube"
)

// ChannelLister lists recent uploads of a channel.
type ChannelLister interface {
	ListChannel(ctx context.Context, channelID string, since time.Time, limit int) ([]youtube.Entry, error)
}

// Store is the subset of the checkpoint store the watcher writes to.
type Store interface {
	ChannelCheckedAt(ctx context.Context, channelID string) (time.Time, bool, error)
	SetChannelChecked(ctx context.Context, channelID, name string, at time.Time) error
	AddDiscovered(ctx context.Context, videos []checkpoint.Video) (int, error)
}

// PendingLister reads unpublished discovered videos.
type PendingLister interface {
	Pending(ctx context.Context, limit int) ([]checkpoint.Video, error)
}

// ChannelResult summarizes one channel scan.
type ChannelResult struct {
	Channel config.Channel
	Since   time.Time
	Listed  int
	Added   int
	Err     error
}

// Watcher scans configured channels for uploads the checkpoint has not seen.
type Watcher struct {
	lister     ChannelLister
	store      Store
	notifier   notifications.Service
	logger     *slog.Logger
	lookback   time.Duration
	maxResults int
	now        func() time.Time
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// WithNotifier reports discoveries through svc.
func WithNotifier(svc notifications.Service) Option {
	return func(w *Watcher) {
		if svc != nil {
			w.notifier = svc
		}
	}
}

// New constructs a watcher from the [watch] configuration.
func New(cfg config.Watch, lister ChannelLister, store Store, logger *slog.Logger, opts ...Option) *Watcher {
	days := cfg.LookbackDays
	if days <= 0 {
		days = 7
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	w := &Watcher{
		lister:     lister,
		store:      store,
		notifier:   notifications.NewService(nil),
		logger:     logging.NewComponentLogger(logger, "watch"),
		lookback:   time.Duration(days) * 24 * time.Hour,
		maxResults: maxResults,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Scan checks every channel once. A failing channel is logged and reported in
// its result; the remaining channels are still scanned. The returned error is
// only set when ctx was cancelled.
func (w *Watcher) Scan(ctx context.Context, channels []config.Channel) ([]ChannelResult, error) {
	results := make([]ChannelResult, 0, len(channels))
	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := w.scanChannel(ctx, channel)
		results = append(results, result)
		if result.Err != nil && errors.Is(result.Err, context.Canceled) {
			return results, result.Err
		}
	}
	return results, nil
}

func (w *Watcher) scanChannel(ctx context.Context, channel config.Channel) ChannelResult {
	channel.ID = strings.TrimSpace(channel.ID)
	name := channel.Name
	if strings.TrimSpace(name) == "" {
		name = channel.ID
	}
	logger := w.logger.With(logging.String("channel_id", channel.ID), logging.String("channel", name))
	result := ChannelResult{Channel: channel}

	if channel.ID == "" {
		result.Err = services.Wrap(services.ErrValidation, "watch", "scan", "channel id is empty", nil)
		logging.WarnWithContext(logger, "channel skipped", "watch_channel_invalid",
			logging.Error(result.Err),
			logging.String(logging.FieldErrorHint, "set id in every [[watch.channels]] entry"),
		)
		return result
	}

	startedAt := w.now()
	since, ok, err := w.store.ChannelCheckedAt(ctx, channel.ID)
	if err != nil {
		result.Err = err
		logging.ErrorWithContext(logger, "channel checkpoint unreadable", "watch_channel_failure",
			logging.Error(err),
		)
		return result
	}
	if !ok {
		since = startedAt.Add(-w.lookback)
	}
	result.Since = since

	entries, err := w.lister.ListChannel(ctx, channel.ID, since, w.maxResults)
	if err != nil {
		result.Err = err
		logging.ErrorWithContext(logger, "channel listing failed", "watch_channel_failure",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the channel id and youtube api quota"),
		)
		return result
	}
	result.Listed = len(entries)

	videos := make([]checkpoint.Video, 0, len(entries))
	for _, entry := range entries {
		if entry.VideoID == "" {
			continue
		}
		videos = append(videos, checkpoint.Video{
			ID:          entry.VideoID,
			URL:         entry.URL,
			Title:       entry.Title,
			ChannelID:   channel.ID,
			PublishedAt: entry.PublishedAt,
		})
	}
	added, err := w.store.AddDiscovered(ctx, videos)
	if err != nil {
		result.Err = err
		logging.ErrorWithContext(logger, "recording discovered videos failed", "watch_channel_failure",
			logging.Error(err),
		)
		return result
	}
	result.Added = added

	if err := w.store.SetChannelChecked(ctx, channel.ID, name, startedAt); err != nil {
		logging.WarnWithContext(logger, "channel checkpoint not updated", "checkpoint_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next scan repeats this window"),
		)
	}

	logger.Info("channel scanned",
		logging.String(logging.FieldEventType, "watch_channel_complete"),
		logging.Int("listed", result.Listed),
		logging.Int("added", added),
	)
	if added > 0 {
		if err := w.notifier.NotifyVideosDiscovered(ctx, name, added); err != nil {
			logger.Debug("discovery notification failed", logging.Error(err))
		}
	}
	return result
}

// PendingInputs returns the canonical URLs of discovered videos that have not
// been published yet, oldest first.
func PendingInputs(ctx context.Context, store PendingLister, limit int) ([]string, error) {
	videos, err := store.Pending(ctx, limit)
	if err != nil {
		return nil, err
	}
	inputs := make([]string, 0, len(videos))
	for _, v := range videos {
		if v.URL != "" {
			inputs = append(inputs, v.URL)
			continue
		}
		inputs = append(inputs, v.ID)
	}
	return inputs, nil
}
