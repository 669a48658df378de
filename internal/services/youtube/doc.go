// Package youtube lists playlist and channel videos and looks up per-video
// metadata.
//
// Two Lister implementations exist: APILister uses the YouTube Data API v3
// and needs an API key; FeedLister reads the public Atom feeds and needs no
// credentials but only sees recent uploads. OEmbed resolves a video's title
// and channel name.
package youtube
