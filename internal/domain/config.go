package domain

import "time"

// Config represents the application configuration
type Config struct {
	Site         SiteConfig         `mapstructure:"site"`
	Download     DownloadConfig     `mapstructure:"download"`
	Subtitle     SubtitleConfig     `mapstructure:"subtitle"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// SiteConfig pins the origin and the resolver endpoints the locator talks to
type SiteConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	MovieResolverPath   string        `mapstructure:"movie_resolver_path"`
	EpisodeResolverPath string        `mapstructure:"episode_resolver_path"`
	UserAgent           string        `mapstructure:"user_agent"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir          string        `mapstructure:"output_dir"`
	WorkDir            string        `mapstructure:"work_dir"`
	ConcurrentSegments int           `mapstructure:"concurrent_segments"`
	SegmentRetries     int           `mapstructure:"segment_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	FFmpegBinary       string        `mapstructure:"ffmpeg_binary"`
	Remux              bool          `mapstructure:"remux"`
}

// SubtitleConfig selects which subtitle track to keep
type SubtitleConfig struct {
	Language string `mapstructure:"language"`
}

// HistoryConfig contains the catalog/history store configuration
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:             "https://soaper.live",
			MovieResolverPath:   "/home/index/GetMInfoAjax",
			EpisodeResolverPath: "/home/index/GetEInfoAjax",
			UserAgent:           "Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
			Timeout:             30 * time.Second,
		},
		Download: DownloadConfig{
			OutputDir:          "$HOME/Downloads/soaper",
			WorkDir:            "$HOME/Downloads/soaper/.work",
			ConcurrentSegments: 16,
			SegmentRetries:     3,
			RetryDelay:         2 * time.Second,
			FFmpegBinary:       "ffmpeg",
			Remux:              false,
		},
		Subtitle: SubtitleConfig{
			Language: "en",
		},
		History: HistoryConfig{
			DatabasePath: "$HOME/Downloads/soaper/.soaper-dl.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
