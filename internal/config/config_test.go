package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestYAML(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test yaml: %v", err)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, `
channel:
  name: abakan_mebel
  max_posts: 500
  latest_count: 10
schedule:
  interval: 2h
fetch:
  page_delay: 3s
  timeout: 30s
  user_agent: "test-agent/1.0"
storage:
  data_dir: /var/lib/chancache
log:
  file: /var/log/chancache.log
  level: debug
serve:
  addr: ":9090"
feed:
  title: "Abakan Mebel"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Channel.Name != "abakan_mebel" {
		t.Errorf("channel name = %q", cfg.Channel.Name)
	}
	if cfg.ChannelURL() != "https://t.me/s/abakan_mebel" {
		t.Errorf("channel URL = %q", cfg.ChannelURL())
	}
	if cfg.Channel.MaxPosts != 500 {
		t.Errorf("max_posts = %d", cfg.Channel.MaxPosts)
	}
	if cfg.Schedule.Interval.Duration != 2*time.Hour {
		t.Errorf("interval = %v", cfg.Schedule.Interval.Duration)
	}
	if cfg.Fetch.PageDelay.Duration != 3*time.Second {
		t.Errorf("page_delay = %v", cfg.Fetch.PageDelay.Duration)
	}
	if cfg.CachePath() != filepath.Join("/var/lib/chancache", DefaultCacheFile) {
		t.Errorf("cache path = %q", cfg.CachePath())
	}
	if cfg.FeedTitle() != "Abakan Mebel" {
		t.Errorf("feed title = %q", cfg.FeedTitle())
	}
	if cfg.Serve.Addr != ":9090" {
		t.Errorf("serve addr = %q", cfg.Serve.Addr)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, `
channel:
  name: somechannel
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Channel.MaxPosts != DefaultMaxPosts {
		t.Errorf("max_posts = %d, want default %d", cfg.Channel.MaxPosts, DefaultMaxPosts)
	}
	if cfg.Channel.LatestCount != DefaultLatestCount {
		t.Errorf("latest_count = %d, want default %d", cfg.Channel.LatestCount, DefaultLatestCount)
	}
	if cfg.Schedule.Interval.Duration != DefaultInterval {
		t.Errorf("interval = %v, want default %v", cfg.Schedule.Interval.Duration, DefaultInterval)
	}
	if cfg.Fetch.Timeout.Duration != DefaultTimeout {
		t.Errorf("timeout = %v, want default %v", cfg.Fetch.Timeout.Duration, DefaultTimeout)
	}
	if cfg.CachePath() != filepath.Join(DefaultDataDir, DefaultCacheFile) {
		t.Errorf("cache path = %q", cfg.CachePath())
	}
	if cfg.FeedTitle() != "@somechannel" {
		t.Errorf("feed title = %q", cfg.FeedTitle())
	}
	if cfg.FeedPath() != filepath.Join(DefaultDataDir, "feed.xml") {
		t.Errorf("feed path = %q", cfg.FeedPath())
	}
}

func TestLoad_BaseURLOverride(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, `
channel:
  base_url: "https://mirror.example/s/somechannel"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChannelURL() != "https://mirror.example/s/somechannel" {
		t.Errorf("channel URL = %q", cfg.ChannelURL())
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"missing channel",
			`storage: {data_dir: data}`,
			"channel: name or base_url",
		},
		{
			"interval too short",
			"channel:\n  name: c\nschedule:\n  interval: 30s",
			"schedule.interval",
		},
		{
			"bad log level",
			"channel:\n  name: c\nlog:\n  level: loud",
			"log.level",
		},
		{
			"bad duration syntax",
			"channel:\n  name: c\nschedule:\n  interval: eventually",
			"parse duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTestYAML(t, dir, tt.yaml)

			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing config.yaml")
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	_, err := Load("  ")
	if err == nil {
		t.Fatal("expected error for blank config dir")
	}
}
