package domain

// MediaType selects what the backend should produce
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// DownloadOptions carry the user's format/quality choices. They are opaque to
// the orchestration engine and mapped to backend flags by the adapters.
type DownloadOptions struct {
	Type MediaType `mapstructure:"type"`

	// Video
	Resolution  string `mapstructure:"resolution"`   // "1080p", "Best", ...
	VideoFormat string `mapstructure:"video_format"` // merge container: mp4, mkv, webm

	// Audio extraction
	AudioFormat  string `mapstructure:"audio_format"`  // mp3, m4a, flac, ...
	AudioQuality string `mapstructure:"audio_quality"` // "0" = best

	// Extras
	WriteSubtitles bool   `mapstructure:"write_subtitles"`
	SubtitleLang   string `mapstructure:"subtitle_lang"`
	EmbedSubtitles bool   `mapstructure:"embed_subtitles"`
	EmbedThumbnail bool   `mapstructure:"embed_thumbnail"`
	EmbedMetadata  bool   `mapstructure:"embed_metadata"`
	SponsorBlock   bool   `mapstructure:"sponsor_block"`

	// Playlist handling
	Playlist      bool `mapstructure:"playlist"`
	PlaylistLimit int  `mapstructure:"playlist_limit"`

	// Output
	OutputDir string `mapstructure:"output_dir"`
}

// DefaultDownloadOptions returns sensible defaults for interactive use
func DefaultDownloadOptions() DownloadOptions {
	return DownloadOptions{
		Type:         MediaVideo,
		Resolution:   "1080p",
		VideoFormat:  "mp4",
		AudioFormat:  "mp3",
		AudioQuality: "0",
		SubtitleLang: "en",
		Playlist:     true,
	}
}
