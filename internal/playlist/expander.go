// Package playlist expands playlist references into their member videos.
package playlist

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"tubenote/internal/logging"
	"tubenote/internal/services"
	"tubenote/internal/services/youtube"
	"tubenote/internal/video"
)

// Lister returns the raw entries of a playlist.
type Lister interface {
	ListPlaylist(ctx context.Context, playlistID string) ([]youtube.Entry, error)
}

// capped is implemented by listers that return at most a fixed number of
// entries.
type capped interface {
	Truncates(listed int) bool
}

// Expander resolves playlists to video references.
type Expander struct {
	lister Lister
	logger *slog.Logger

	mu        sync.Mutex
	truncated map[string]bool
}

// NewExpander returns an Expander backed by lister.
func NewExpander(lister Lister, logger *slog.Logger) *Expander {
	return &Expander{lister: lister, logger: logging.NewComponentLogger(logger, "playlist")}
}

// Expand lists the playlist and returns a single-use sequence of its videos in
// playlist order. Entries that do not resolve to a video are dropped. A listing
// failure yields no sequence and an error wrapped with
// services.ErrPlaylistUnavailable.
func (e *Expander) Expand(ctx context.Context, ref video.Reference) (iter.Seq[video.Reference], error) {
	if !ref.IsPlaylist() {
		return nil, services.Wrap(services.ErrValidation, "playlist", "expand", fmt.Sprintf("%s is not a playlist", ref.Raw), nil)
	}
	entries, err := e.lister.ListPlaylist(ctx, ref.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrPlaylistUnavailable, "playlist", "expand", "playlist "+ref.ID, err)
	}
	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("playlist listed", logging.String("playlist_id", ref.ID), logging.Int("entries", len(entries)))
	if c, ok := e.lister.(capped); ok && c.Truncates(len(entries)) {
		logging.WarnWithContext(logger, "playlist listing may be truncated", "playlist_truncated",
			logging.String("playlist_id", ref.ID),
			logging.Int("entries", len(entries)),
			logging.String(logging.FieldErrorHint, "set YOUTUBE_API_KEY to list the full playlist"),
			logging.String(logging.FieldImpact, "only the most recent playlist videos are processed"),
		)
		e.markTruncated(ref.ID)
	}

	consumed := false
	return func(yield func(video.Reference) bool) {
		if consumed {
			return
		}
		consumed = true
		for _, entry := range entries {
			item, ok := e.resolve(logger, entry)
			if !ok {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}, nil
}

// Truncated reports whether the last listing of playlistID hit the lister's
// entry cap.
func (e *Expander) Truncated(playlistID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.truncated[playlistID]
}

func (e *Expander) markTruncated(playlistID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.truncated == nil {
		e.truncated = make(map[string]bool)
	}
	e.truncated[playlistID] = true
}

func (e *Expander) resolve(logger *slog.Logger, entry youtube.Entry) (video.Reference, bool) {
	raw := entry.URL
	if raw == "" {
		raw = entry.VideoID
	}
	if raw == "" {
		logger.Debug("playlist entry without url dropped", logging.String("title", entry.Title))
		return video.Reference{}, false
	}
	ref, err := video.Parse(raw)
	if err != nil || ref.IsPlaylist() {
		logger.Debug("playlist entry dropped", logging.String("entry", raw), logging.Error(err))
		return video.Reference{}, false
	}
	return ref, true
}
