package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tubenote/internal/services"
)

const defaultOEmbedURL = "https://www.youtube.com/oembed"

// Metadata is the display information for one video.
type Metadata struct {
	Title   string
	Channel string
}

// OEmbed looks up video metadata without credentials.
type OEmbed struct {
	endpoint   string
	httpClient *http.Client
}

// NewOEmbed creates an oEmbed client. An empty endpoint uses YouTube's.
func NewOEmbed(endpoint string, httpClient *http.Client) *OEmbed {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultOEmbedURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &OEmbed{endpoint: endpoint, httpClient: httpClient}
}

// Lookup returns the title and channel name of the video at videoURL.
func (o *OEmbed) Lookup(ctx context.Context, videoURL string) (Metadata, error) {
	query := url.Values{"url": {videoURL}, "format": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrValidation, "oembed", "build request", "", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrTransient, "oembed", "lookup", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Metadata{}, services.Wrap(services.ErrExternalService, "oembed", "lookup",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	var payload struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Metadata{}, services.Wrap(services.ErrExternalService, "oembed", "decode", "", err)
	}
	return Metadata{
		Title:   strings.TrimSpace(payload.Title),
		Channel: strings.TrimSpace(payload.AuthorName),
	}, nil
}
