package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://youtube.com/watch?v=abc",
		"http://example.com/video",
		"HTTPS://YouTube.com/watch",
	}
	for _, url := range valid {
		assert.True(t, ValidateURL(url), url)
	}

	invalid := []string{
		"",
		"youtube.com/watch",
		"ftp://example.com/file",
		"https://",
		"not a url",
	}
	for _, url := range invalid {
		assert.False(t, ValidateURL(url), url)
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc", "YouTube"},
		{"https://youtu.be/abc", "YouTube"},
		{"https://www.tiktok.com/@user/video/123", "TikTok"},
		{"https://soundcloud.com/artist/track", "SoundCloud"},
		{"https://unknown-host.example/v", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectPlatform(tt.url), tt.url)
	}
}

func TestIsDRMPlatform(t *testing.T) {
	drm := []string{
		"https://open.spotify.com/track/abc",
		"https://music.apple.com/us/album/xyz",
		"https://music.amazon.com/albums/abc",
		"https://tidal.com/browse/track/1",
		"https://www.deezer.com/track/2",
	}
	for _, url := range drm {
		assert.True(t, IsDRMPlatform(url), url)
	}

	assert.False(t, IsDRMPlatform("https://youtube.com/watch?v=abc"))
	// Plain apple.com is not the music storefront.
	assert.False(t, IsDRMPlatform("https://apple.com/iphone"))
}

func TestNeedsImpersonation(t *testing.T) {
	assert.True(t, NeedsImpersonation("https://www.tiktok.com/@user/video/123"))
	assert.False(t, NeedsImpersonation("https://youtube.com/watch?v=abc"))
}

func TestIsPlaylistURL(t *testing.T) {
	playlists := []string{
		"https://www.youtube.com/playlist?list=PLabc",
		"https://example.com/playlist/123",
		"https://music.youtube.com/watch?v=abc&list=RDabc",
		"https://music.youtube.com/album/MPREabc",
		"https://soundcloud.com/artist/sets/my-mix",
	}
	for _, url := range playlists {
		assert.True(t, IsPlaylistURL(url), url)
	}

	singles := []string{
		"https://www.youtube.com/watch?v=abc",
		"https://soundcloud.com/artist/track",
		"https://music.youtube.com/watch?v=abc",
	}
	for _, url := range singles {
		assert.False(t, IsPlaylistURL(url), url)
	}
}

func TestSupportedPlatforms_SortedByHost(t *testing.T) {
	platforms := SupportedPlatforms()
	assert.NotEmpty(t, platforms)
	for i := 1; i < len(platforms); i++ {
		assert.Less(t, platforms[i-1].Host, platforms[i].Host)
	}
}
