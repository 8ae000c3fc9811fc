package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    string
		want    string
	}{
		{
			name:    "simple path",
			baseURL: "http://127.0.0.1:8000",
			path:    "song.mp3",
			want:    "http://127.0.0.1:8000/stream?path=song.mp3",
		},
		{
			name:    "trailing slash on base",
			baseURL: "http://127.0.0.1:8000/",
			path:    "song.mp3",
			want:    "http://127.0.0.1:8000/stream?path=song.mp3",
		},
		{
			name:    "subdirectories are escaped",
			baseURL: "http://127.0.0.1:8000",
			path:    "Music/Artist/song.mp3",
			want:    "http://127.0.0.1:8000/stream?path=Music%2FArtist%2Fsong.mp3",
		},
		{
			name:    "spaces and specials are escaped",
			baseURL: "http://127.0.0.1:8000",
			path:    "My Song & Friends.mp3",
			want:    "http://127.0.0.1:8000/stream?path=My+Song+%26+Friends.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrackURL(tt.baseURL, tt.path))
		})
	}
}
