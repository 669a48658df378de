package youtube

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"tubenote/internal/services"
)

const defaultFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// FeedEntryLimit is the number of entries YouTube puts in one Atom feed.
const FeedEntryLimit = 15

// FeedLister implements Lister using the public Atom feeds. Feeds only carry
// the most recent FeedEntryLimit uploads, so long playlists are truncated.
type FeedLister struct {
	parser  *gofeed.Parser
	baseURL string
}

// NewFeedLister creates a keyless feed lister.
func NewFeedLister(baseURL string, httpClient *http.Client) *FeedLister {
	parser := gofeed.NewParser()
	if httpClient != nil {
		parser.Client = httpClient
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultFeedBaseURL
	}
	return &FeedLister{parser: parser, baseURL: baseURL}
}

// ListPlaylist reads the playlist feed.
func (f *FeedLister) ListPlaylist(ctx context.Context, playlistID string) ([]Entry, error) {
	return f.list(ctx, "playlist_id", playlistID, "list playlist")
}

// Truncates reports whether a listing of listed entries may have been cut
// off at the feed limit.
func (f *FeedLister) Truncates(listed int) bool {
	return listed >= FeedEntryLimit
}

// ListChannel reads the channel feed and keeps entries published after since.
func (f *FeedLister) ListChannel(ctx context.Context, channelID string, since time.Time, limit int) ([]Entry, error) {
	all, err := f.list(ctx, "channel_id", channelID, "list channel")
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(all))
	for _, entry := range all {
		if !since.IsZero() && !entry.PublishedAt.After(since) {
			continue
		}
		entry.ChannelID = channelID
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

func (f *FeedLister) list(ctx context.Context, param, id, operation string) ([]Entry, error) {
	feedURL := f.baseURL + "?" + url.Values{param: {id}}.Encode()
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "youtube", operation, "", err)
		}
		return nil, services.Wrap(services.ErrExternalService, "youtube", operation, "feed "+feedURL, err)
	}
	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := Entry{
			VideoID: feedVideoID(item),
			URL:     strings.TrimSpace(item.Link),
			Title:   strings.TrimSpace(item.Title),
		}
		if entry.URL == "" {
			entry.URL = watchURL(entry.VideoID)
		}
		if item.PublishedParsed != nil {
			entry.PublishedAt = *item.PublishedParsed
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// feedVideoID reads the yt:videoId extension element.
func feedVideoID(item *gofeed.Item) string {
	ns, ok := item.Extensions["yt"]
	if !ok {
		return ""
	}
	values := ns["videoId"]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
