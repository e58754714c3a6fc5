package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultCheckInterval     = 3600
	defaultBufferTime        = 7200
	defaultCycleTimeout      = 300
	defaultRecentEpisodeDays = 30
	defaultLookbackDays      = 1
	defaultConnectRetry      = 3
	defaultHTTPTimeout       = 30 * time.Second
	defaultRetryDelay        = 5 * time.Second
	defaultServerPort        = "0.0.0.0:3000"
	defaultMovieLibrary      = "Movies"
	defaultTVLibrary         = "TV Shows"
	defaultDataDir           = "."
	defaultLogLevel          = "info"
	defaultCommandPrefix     = "!"
)

type Config struct {
	DiscordToken            string `mapstructure:"discord_token"`
	ChannelID               string `mapstructure:"channel_id"`
	MovieChannelID          string `mapstructure:"movie_channel_id"`
	NewShowsChannelID       string `mapstructure:"new_shows_channel_id"`
	RecentEpisodesChannelID string `mapstructure:"recent_episodes_channel_id"`
	CommandPrefix           string `mapstructure:"command_prefix"`

	PlexURL      string `mapstructure:"plex_url"`
	PlexToken    string `mapstructure:"plex_token"`
	MovieLibrary string `mapstructure:"movie_library"`
	TVLibrary    string `mapstructure:"tv_library"`

	NotifyMovies         bool `mapstructure:"notify_movies"`
	NotifyNewShows       bool `mapstructure:"notify_new_shows"`
	NotifyRecentEpisodes bool `mapstructure:"notify_recent_episodes"`
	RecentEpisodeDays    int  `mapstructure:"recent_episode_days"`
	LookbackDays         int  `mapstructure:"lookback_days"`

	CheckIntervalSeconds int `mapstructure:"check_interval"`
	BufferTimeSeconds    int `mapstructure:"buffer_time"`
	CycleTimeoutSeconds  int `mapstructure:"cycle_timeout"`
	ConnectRetry         int `mapstructure:"connect_retry"`

	DataDir    string `mapstructure:"data_dir"`
	ServerPort string `mapstructure:"server_port"`
	LogLevel   string `mapstructure:"log_level"`
}

// Load reads configuration from an optional config.yml in the working
// directory, with ANNOUNCARR_-prefixed environment variables taking
// precedence over both the file and the defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ANNOUNCARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("command_prefix", defaultCommandPrefix)
	v.SetDefault("movie_library", defaultMovieLibrary)
	v.SetDefault("tv_library", defaultTVLibrary)
	v.SetDefault("notify_movies", true)
	v.SetDefault("notify_new_shows", true)
	v.SetDefault("notify_recent_episodes", true)
	v.SetDefault("recent_episode_days", defaultRecentEpisodeDays)
	v.SetDefault("lookback_days", defaultLookbackDays)
	v.SetDefault("check_interval", defaultCheckInterval)
	v.SetDefault("buffer_time", defaultBufferTime)
	v.SetDefault("cycle_timeout", defaultCycleTimeout)
	v.SetDefault("connect_retry", defaultConnectRetry)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("server_port", defaultServerPort)
	v.SetDefault("log_level", defaultLogLevel)
}

// bindKeys registers every key with viper so AutomaticEnv picks the variable
// up even when the key never appears in a config file.
func bindKeys(v *viper.Viper) {
	keys := []string{
		"discord_token", "channel_id", "movie_channel_id",
		"new_shows_channel_id", "recent_episodes_channel_id",
		"plex_url", "plex_token",
	}
	for _, key := range keys {
		v.BindEnv(key)
	}
}

// Validate fails fast before any cycle runs.
func (c *Config) Validate() error {
	required := map[string]string{
		"discord_token": c.DiscordToken,
		"channel_id":    c.ChannelID,
		"plex_url":      c.PlexURL,
		"plex_token":    c.PlexToken,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("required configuration missing: %s", key)
		}
	}

	positive := map[string]int{
		"check_interval":      c.CheckIntervalSeconds,
		"cycle_timeout":       c.CycleTimeoutSeconds,
		"recent_episode_days": c.RecentEpisodeDays,
		"lookback_days":       c.LookbackDays,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("configuration %s must be positive, got %d", key, value)
		}
	}

	if c.BufferTimeSeconds < 0 {
		return fmt.Errorf("configuration buffer_time must not be negative, got %d", c.BufferTimeSeconds)
	}
	if c.ConnectRetry < 1 {
		return fmt.Errorf("configuration connect_retry must be at least 1, got %d", c.ConnectRetry)
	}
	return nil
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func (c *Config) BufferTime() time.Duration {
	return time.Duration(c.BufferTimeSeconds) * time.Second
}

func (c *Config) CycleTimeout() time.Duration {
	return time.Duration(c.CycleTimeoutSeconds) * time.Second
}

func (c *Config) HTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

func (c *Config) RetryDelay() time.Duration {
	return defaultRetryDelay
}

func (c *Config) ProcessedPath() string {
	return filepath.Join(c.DataDir, "processed.json")
}

func (c *Config) BufferPath() string {
	return filepath.Join(c.DataDir, "pending.json")
}
