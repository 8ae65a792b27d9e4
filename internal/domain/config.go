package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Backend      BackendConfig      `mapstructure:"backend"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// EngineConfig tunes the download orchestration engine
type EngineConfig struct {
	DownloadDir   string        `mapstructure:"download_dir"`
	Concurrency   int           `mapstructure:"concurrency"`    // 1..10 workers
	MaxAttempts   int           `mapstructure:"max_attempts"`   // per-item attempts
	BackoffBase   time.Duration `mapstructure:"backoff_base"`   // first retry delay
	BackoffCap    time.Duration `mapstructure:"backoff_cap"`    // delay ceiling
	ItemTimeout   time.Duration `mapstructure:"item_timeout"`   // per-item deadline
	PlaylistLimit int           `mapstructure:"playlist_limit"` // items kept per playlist
	ResolveCap    int           `mapstructure:"resolve_cap"`    // entries the resolver fetches
	MinFreeMB     int64         `mapstructure:"min_free_mb"`    // disk space precondition
	StartSpacing  time.Duration `mapstructure:"start_spacing"`  // gap between session starts
}

// BackendConfig locates the external media backend
type BackendConfig struct {
	Binary        string `mapstructure:"binary"`
	CookieFile    string `mapstructure:"cookie_file"`
	SocketTimeout int    `mapstructure:"socket_timeout"`
}

// HistoryConfig contains session history persistence configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains desktop notification configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Engine: EngineConfig{
			DownloadDir:   "$HOME/Downloads/revgrab",
			Concurrency:   3,
			MaxAttempts:   3,
			BackoffBase:   2 * time.Second,
			BackoffCap:    30 * time.Second,
			ItemTimeout:   5 * time.Minute,
			PlaylistLimit: 50,
			ResolveCap:    500,
			MinFreeMB:     500,
			StartSpacing:  2 * time.Second,
		},
		Backend: BackendConfig{
			Binary:        "yt-dlp",
			SocketTimeout: 30,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/Downloads/revgrab/.revgrab/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
