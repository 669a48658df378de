package youtube

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"tubenote/internal/services"
)

const (
	defaultMaxItems = 500
	pageSize        = 50
)

// APIConfig configures the Data API lister.
type APIConfig struct {
	APIKey   string
	Endpoint string
	// MaxItems caps how many playlist entries are collected across pages.
	MaxItems int
}

// APILister implements Lister using the YouTube Data API v3.
type APILister struct {
	service  *yt.Service
	maxItems int
}

// NewAPILister creates a Data API lister authenticated by API key.
func NewAPILister(ctx context.Context, cfg APIConfig) (*APILister, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "new api lister", "api key required", nil)
	}
	opts := []option.ClientOption{option.WithAPIKey(key)}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "new api lister", "", err)
	}
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	return &APILister{service: service, maxItems: maxItems}, nil
}

// ListPlaylist pages through playlistItems.list until the playlist is
// exhausted or MaxItems entries have been collected.
func (a *APILister) ListPlaylist(ctx context.Context, playlistID string) ([]Entry, error) {
	var entries []Entry
	pageToken := ""
	for {
		call := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, classifyAPIError(ctx, "list playlist", err)
		}
		for _, item := range resp.Items {
			entry := Entry{}
			if item.ContentDetails != nil {
				entry.VideoID = item.ContentDetails.VideoId
			}
			if item.Snippet != nil {
				entry.Title = item.Snippet.Title
				entry.ChannelID = item.Snippet.VideoOwnerChannelId
				if entry.VideoID == "" && item.Snippet.ResourceId != nil {
					entry.VideoID = item.Snippet.ResourceId.VideoId
				}
				entry.PublishedAt = parseTime(item.Snippet.PublishedAt)
			}
			entry.URL = watchURL(entry.VideoID)
			entries = append(entries, entry)
			if len(entries) >= a.maxItems {
				return entries, nil
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return entries, nil
		}
	}
}

// ListChannel returns the channel's uploads published after since, newest
// first, via search.list.
func (a *APILister) ListChannel(ctx context.Context, channelID string, since time.Time, limit int) ([]Entry, error) {
	if limit <= 0 || limit > pageSize {
		limit = pageSize
	}
	call := a.service.Search.List([]string{"id", "snippet"}).
		ChannelId(channelID).
		Order("date").
		Type("video").
		MaxResults(int64(limit)).
		Context(ctx)
	if !since.IsZero() {
		call = call.PublishedAfter(since.UTC().Format(time.RFC3339))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, classifyAPIError(ctx, "search channel", err)
	}
	entries := make([]Entry, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		entry := Entry{
			VideoID:   item.Id.VideoId,
			URL:       watchURL(item.Id.VideoId),
			ChannelID: channelID,
		}
		if item.Snippet != nil {
			entry.Title = item.Snippet.Title
			entry.PublishedAt = parseTime(item.Snippet.PublishedAt)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func classifyAPIError(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil {
		return services.Wrap(services.ErrTimeout, "youtube", operation, "", err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return services.Wrap(services.ErrTransient, "youtube", operation, "", err)
		case apiErr.Code == http.StatusForbidden && hasReason(apiErr, "quotaExceeded"):
			return services.Wrap(services.ErrRateLimited, "youtube", operation, "quota exceeded", err)
		}
	}
	return services.Wrap(services.ErrExternalService, "youtube", operation, "", err)
}

func hasReason(apiErr *googleapi.Error, reason string) bool {
	for _, item := range apiErr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return t
}
