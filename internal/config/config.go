// Package config loads and validates the chancache configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile  = "config.yaml"
	DefaultBaseURL     = "https://t.me/s/"
	DefaultMaxPosts    = 300
	DefaultLatestCount = 20
	DefaultInterval    = time.Hour
	DefaultPageDelay   = time.Second
	DefaultTimeout     = 60 * time.Second
	DefaultDataDir     = "data"
	DefaultCacheFile   = "cached_posts.json"
	DefaultLatestFile  = "latest_posts.json"
	DefaultStatusFile  = "parser_status.json"
	DefaultLogFile     = "logs/parser.log"
	DefaultLogLevel    = "info"
	DefaultServeAddr   = ":8080"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "1h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Channel  ChannelConfig  `yaml:"channel"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Serve    ServeConfig    `yaml:"serve"`
	Feed     FeedConfig     `yaml:"feed"`
}

type ChannelConfig struct {
	Name string `yaml:"name"`
	// BaseURL overrides the preview URL entirely; when empty it is
	// derived from the channel name.
	BaseURL     string `yaml:"base_url"`
	MaxPosts    int    `yaml:"max_posts"`
	LatestCount int    `yaml:"latest_count"`
}

type ScheduleConfig struct {
	Interval Duration `yaml:"interval"`
}

type FetchConfig struct {
	PageDelay Duration `yaml:"page_delay"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	CacheFile  string `yaml:"cache_file"`
	LatestFile string `yaml:"latest_file"`
	StatusFile string `yaml:"status_file"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

type FeedConfig struct {
	Title string `yaml:"title"`
	File  string `yaml:"file"`
}

// Load reads config.yaml from dir, applies defaults, and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// ChannelURL returns the preview page to scrape.
func (c *Config) ChannelURL() string {
	if c.Channel.BaseURL != "" {
		return c.Channel.BaseURL
	}
	return DefaultBaseURL + c.Channel.Name
}

func (c *Config) CachePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.CacheFile)
}

func (c *Config) LatestPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.LatestFile)
}

func (c *Config) StatusPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.StatusFile)
}

// FeedTitle returns the configured feed title or one derived from the
// channel name.
func (c *Config) FeedTitle() string {
	if c.Feed.Title != "" {
		return c.Feed.Title
	}
	return "@" + c.Channel.Name
}

// FeedPath returns the Atom output file for the feed command.
func (c *Config) FeedPath() string {
	if c.Feed.File != "" {
		return c.Feed.File
	}
	return filepath.Join(c.Storage.DataDir, "feed.xml")
}

func applyDefaults(cfg *Config) {
	if cfg.Channel.MaxPosts == 0 {
		cfg.Channel.MaxPosts = DefaultMaxPosts
	}
	if cfg.Channel.LatestCount == 0 {
		cfg.Channel.LatestCount = DefaultLatestCount
	}
	if cfg.Schedule.Interval.Duration == 0 {
		cfg.Schedule.Interval.Duration = DefaultInterval
	}
	if cfg.Fetch.PageDelay.Duration == 0 {
		cfg.Fetch.PageDelay.Duration = DefaultPageDelay
	}
	if cfg.Fetch.Timeout.Duration == 0 {
		cfg.Fetch.Timeout.Duration = DefaultTimeout
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
	if cfg.Storage.CacheFile == "" {
		cfg.Storage.CacheFile = DefaultCacheFile
	}
	if cfg.Storage.LatestFile == "" {
		cfg.Storage.LatestFile = DefaultLatestFile
	}
	if cfg.Storage.StatusFile == "" {
		cfg.Storage.StatusFile = DefaultStatusFile
	}
	if cfg.Log.File == "" {
		cfg.Log.File = DefaultLogFile
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = DefaultServeAddr
	}
}

func validate(cfg *Config) error {
	if cfg.Channel.Name == "" && cfg.Channel.BaseURL == "" {
		return errors.New("channel: name or base_url must be set")
	}
	if cfg.Channel.MaxPosts < 1 {
		return fmt.Errorf("channel.max_posts: must be at least 1, got %d", cfg.Channel.MaxPosts)
	}
	if cfg.Channel.LatestCount < 1 {
		return fmt.Errorf("channel.latest_count: must be at least 1, got %d", cfg.Channel.LatestCount)
	}
	if cfg.Schedule.Interval.Duration < time.Minute {
		return fmt.Errorf("schedule.interval: must be at least 1m, got %s", cfg.Schedule.Interval.Duration)
	}
	if cfg.Fetch.PageDelay.Duration < 0 {
		return errors.New("fetch.page_delay: must not be negative")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("log.level: unknown level %q (want debug, info, warn, or error)", cfg.Log.Level)
	}

	return nil
}
