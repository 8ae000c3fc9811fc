// Package stream constructs streaming URLs for the backend's /stream
// endpoint. The backend serves track audio by URL-encoded file path; no other
// transport detail is in scope for the playback core.
package stream

import (
	"net/url"
	"strings"
)

// TrackURL builds the streaming URL for a source locator:
// <base>/stream?path=<encoded path>.
func TrackURL(baseURL, path string) string {
	values := url.Values{}
	values.Set("path", path)
	return strings.TrimSuffix(baseURL, "/") + "/stream?" + values.Encode()
}
