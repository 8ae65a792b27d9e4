package domain

import (
	"regexp"
	"sort"
	"strings"
)

// supportedPlatforms are the hosts the media backend is known to handle.
// Anything not listed still gets passed through to the backend; the list only
// drives the friendly platform label in logs.
var supportedPlatforms = map[string]string{
	"youtube.com":     "YouTube",
	"youtu.be":        "YouTube",
	"facebook.com":    "Facebook",
	"fb.watch":        "Facebook",
	"instagram.com":   "Instagram",
	"tiktok.com":      "TikTok",
	"twitter.com":     "Twitter",
	"x.com":           "X",
	"soundcloud.com":  "SoundCloud",
	"vimeo.com":       "Vimeo",
	"dailymotion.com": "DailyMotion",
	"bilibili.com":    "Bilibili",
	"twitch.tv":       "Twitch",
	"reddit.com":      "Reddit",
	"pinterest.com":   "Pinterest",
	"linkedin.com":    "LinkedIn",
	"bandcamp.com":    "Bandcamp",
}

// drmPlatforms are encrypted-streaming hosts we refuse up front
var drmPlatforms = []string{
	"spotify.com",
	"music.apple.com",
	"music.amazon.com",
	"tidal.com",
	"deezer.com",
}

// impersonationPlatforms block non-browser clients and need the
// browser-impersonation download path
var impersonationPlatforms = []string{
	"tiktok.com",
}

var urlPattern = regexp.MustCompile(`(?i)^https?://[^\s/$.?#].[^\s]*$`)

// ValidateURL checks that the URL is a well-formed http(s) URL
func ValidateURL(url string) bool {
	return urlPattern.MatchString(url)
}

// DetectPlatform returns a display name for the URL's platform, or empty
func DetectPlatform(url string) string {
	lower := strings.ToLower(url)
	for host, name := range supportedPlatforms {
		if strings.Contains(lower, host) {
			return name
		}
	}
	return ""
}

// PlatformInfo pairs a host pattern with its display name
type PlatformInfo struct {
	Host string
	Name string
}

// SupportedPlatforms returns the known platforms sorted by host
func SupportedPlatforms() []PlatformInfo {
	platforms := make([]PlatformInfo, 0, len(supportedPlatforms))
	for host, name := range supportedPlatforms {
		platforms = append(platforms, PlatformInfo{Host: host, Name: name})
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i].Host < platforms[j].Host })
	return platforms
}

// IsDRMPlatform reports whether the URL belongs to a DRM-protected platform
func IsDRMPlatform(url string) bool {
	lower := strings.ToLower(url)
	for _, host := range drmPlatforms {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// NeedsImpersonation reports whether the URL's platform requires the
// browser-impersonation download path
func NeedsImpersonation(url string) bool {
	lower := strings.ToLower(url)
	for _, host := range impersonationPlatforms {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// IsPlaylistURL detects playlist-shaped URLs from known patterns. A single
// entry resolved under a playlist-shaped URL is still treated as a single
// item; this heuristic only biases classification for ambiguous URLs.
func IsPlaylistURL(url string) bool {
	lower := strings.ToLower(url)
	if strings.Contains(lower, "playlist?list=") || strings.Contains(lower, "/playlist/") {
		return true
	}
	if strings.Contains(lower, "music.youtube.com") &&
		(strings.Contains(lower, "list=") || strings.Contains(lower, "/album/")) {
		return true
	}
	if strings.Contains(lower, "soundcloud.com") && strings.Contains(lower, "/sets/") {
		return true
	}
	return false
}
