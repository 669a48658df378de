// Package video canonicalizes raw video and playlist references.
//
// Every surface form of a video (watch links, short links, shorts, embeds,
// live links, bare identifiers) collapses to one Reference whose URL carries
// exactly one query parameter. Two references with the same ID are the same
// video.
package video

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"tubenote/internal/services"
)

// Kind distinguishes single videos from playlists.
type Kind int

const (
	KindVideo Kind = iota + 1
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

const (
	watchURL    = "https://www.youtube.com/watch?v="
	playlistURL = "https://www.youtube.com/playlist?list="
)

// Reference is a canonical video or playlist reference.
type Reference struct {
	Kind Kind
	ID   string
	// URL is the canonical link: watch?v=<ID> or playlist?list=<ID>.
	URL string
	// Raw is the input the reference was parsed from.
	Raw string
}

// IsPlaylist reports whether the reference names a playlist.
func (r Reference) IsPlaylist() bool { return r.Kind == KindPlaylist }

// NewVideo builds a canonical video reference from an identifier.
func NewVideo(id string) Reference {
	return Reference{Kind: KindVideo, ID: id, URL: watchURL + url.QueryEscape(id), Raw: id}
}

// NewPlaylist builds a canonical playlist reference from an identifier.
func NewPlaylist(id string) Reference {
	return Reference{Kind: KindPlaylist, ID: id, URL: playlistURL + url.QueryEscape(id), Raw: id}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var knownHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"music.youtube.com":        {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
	"youtu.be":                 {},
	"www.youtu.be":             {},
}

// pathPrefixes hold the path forms that carry the video ID as the next segment.
var pathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/", "/e/"}

// Parse normalizes a raw reference. Input with a scheme or a YouTube host is
// read as a URL; anything else is taken as a bare video identifier, so an
// unusual ID is left for the transcript provider to accept or refuse. Empty
// input and URLs that name no video or playlist return an error wrapping
// services.ErrUnrecognizedReference.
func Parse(raw string) (Reference, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return Reference{}, unrecognized(raw, "empty reference")
	}

	if !looksLikeURL(input) {
		ref := NewVideo(input)
		ref.Raw = raw
		return ref, nil
	}

	u, ok := parseURL(input)
	if !ok {
		return Reference{}, unrecognized(raw, "malformed URL")
	}
	host := strings.ToLower(u.Hostname())
	if _, known := knownHosts[host]; !known {
		return Reference{}, unrecognized(raw, fmt.Sprintf("unsupported host %q", host))
	}

	ref, ok := classify(host, u)
	if !ok {
		return Reference{}, unrecognized(raw, "no video or playlist identifier")
	}
	ref.Raw = raw
	return ref, nil
}

// looksLikeURL reports whether input carries a scheme or starts with a
// known YouTube host.
func looksLikeURL(input string) bool {
	if strings.Contains(input, "://") {
		return true
	}
	host, _, _ := strings.Cut(input, "/")
	host, _, _ = strings.Cut(host, "?")
	_, known := knownHosts[strings.ToLower(host)]
	return known
}

func classify(host string, u *url.URL) (Reference, bool) {
	query := u.Query()
	path := strings.TrimRight(u.EscapedPath(), "/")
	videoID := strings.TrimSpace(query.Get("v"))
	listID := strings.TrimSpace(query.Get("list"))

	if host == "youtu.be" || host == "www.youtu.be" {
		id := firstSegment(strings.TrimPrefix(path, "/"))
		if validID(id) {
			return NewVideo(id), true
		}
		return Reference{}, false
	}

	// A dedicated playlist path wins over any v parameter.
	if path == "/playlist" {
		if validID(listID) {
			return NewPlaylist(listID), true
		}
		return Reference{}, false
	}

	if validID(videoID) {
		return NewVideo(videoID), true
	}

	if path == "/embed/videoseries" && validID(listID) {
		return NewPlaylist(listID), true
	}

	for _, prefix := range pathPrefixes {
		if strings.HasPrefix(path+"/", prefix) {
			id := firstSegment(strings.TrimPrefix(path, prefix))
			if validID(id) {
				return NewVideo(id), true
			}
			return Reference{}, false
		}
	}

	if listID != "" && path != "/watch" && validID(listID) {
		return NewPlaylist(listID), true
	}
	return Reference{}, false
}

func parseURL(input string) (*url.URL, bool) {
	candidate := input
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

func firstSegment(path string) string {
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return path
}

func validID(id string) bool {
	return id != "" && identifierPattern.MatchString(id)
}

func unrecognized(raw, reason string) error {
	return services.Wrap(services.ErrUnrecognizedReference, "video", "parse", fmt.Sprintf("%q: %s", raw, reason), nil)
}
