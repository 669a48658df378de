package youtube

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tubenote/internal/config"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// Entry is one video returned by a playlist or channel listing.
type Entry struct {
	VideoID     string
	URL         string
	Title       string
	ChannelID   string
	PublishedAt time.Time
}

// Lister lists the videos of a playlist or the recent uploads of a channel.
type Lister interface {
	ListPlaylist(ctx context.Context, playlistID string) ([]Entry, error)
	ListChannel(ctx context.Context, channelID string, since time.Time, limit int) ([]Entry, error)
}

// NewLister returns the Data API lister when an API key is configured and the
// keyless Atom feed lister otherwise. httpClient only applies to the feed
// lister; the Data API transport carries the key itself.
func NewLister(ctx context.Context, cfg config.YouTube, httpClient *http.Client) (Lister, error) {
	if strings.TrimSpace(cfg.APIKey) != "" {
		return NewAPILister(ctx, APIConfig{
			APIKey:   cfg.APIKey,
			Endpoint: cfg.APIEndpoint,
			MaxItems: cfg.MaxItems,
		})
	}
	return NewFeedLister(cfg.FeedBaseURL, httpClient), nil
}

func watchURL(videoID string) string {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return ""
	}
	return watchURLPrefix + videoID
}
