// Package transcript combines the transcript provider with video metadata to
// produce the input of one document.
package transcript

import (
	"context"
	"log/slog"
	"strings"

	"tubenote/internal/logging"
	"tubenote/internal/services/supadata"
	"tubenote/internal/services/youtube"
	"tubenote/internal/video"
)

// Provider fetches the transcript text of a video.
type Provider interface {
	Fetch(ctx context.Context, ref video.Reference) (supadata.Transcript, error)
}

// MetadataProvider resolves a video's title and channel.
type MetadataProvider interface {
	Lookup(ctx context.Context, videoURL string) (youtube.Metadata, error)
}

// Result is a fetched transcript with its display metadata.
type Result struct {
	VideoID  string
	URL      string
	Text     string
	Language string
	Title    string
	Channel  string
}

// DocumentTitle returns "<title> - <channel>", or a placeholder built from
// the video ID when metadata is missing.
func (r Result) DocumentTitle() string {
	title := strings.TrimSpace(r.Title)
	channel := strings.TrimSpace(r.Channel)
	switch {
	case title != "" && channel != "":
		return title + " - " + channel
	case title != "":
		return title
	default:
		return "Transcript " + r.VideoID
	}
}

// Source fetches transcripts and decorates them with metadata.
type Source struct {
	provider Provider
	metadata MetadataProvider
	logger   *slog.Logger
}

// NewSource builds a Source. metadata may be nil.
func NewSource(provider Provider, metadata MetadataProvider, logger *slog.Logger) *Source {
	return &Source{
		provider: provider,
		metadata: metadata,
		logger:   logging.NewComponentLogger(logger, "transcript"),
	}
}

// Fetch returns the transcript of ref. Provider errors are returned as-is;
// metadata failures only produce a warning.
func (s *Source) Fetch(ctx context.Context, ref video.Reference) (Result, error) {
	fetched, err := s.provider.Fetch(ctx, ref)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		VideoID:  ref.ID,
		URL:      ref.URL,
		Text:     fetched.Text,
		Language: fetched.Language,
	}
	if s.metadata == nil {
		return result, nil
	}
	meta, err := s.metadata.Lookup(ctx, ref.URL)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "video metadata unavailable",
			"metadata_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "private or age-restricted videos have no oEmbed data"),
			logging.String(logging.FieldImpact, "document title falls back to the video id"),
		)
		return result, nil
	}
	result.Title = meta.Title
	result.Channel = meta.Channel
	return result, nil
}
