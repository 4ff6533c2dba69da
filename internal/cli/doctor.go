package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/chancache/internal/config"
	"github.com/ppiankov/chancache/internal/telegram"
	"github.com/spf13/cobra"
)

// staleDays is how old the newest cached post can be before doctor
// flags the cache as stale.
const staleDays = 7

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and data health",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(_ *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config.yaml: %v", err)
		ok = false
	} else {
		printCheck(true, "config.yaml (channel %s, max %d posts, every %s)",
			cfg.ChannelURL(), cfg.Channel.MaxPosts, cfg.Schedule.Interval.Duration)
	}

	if cfg == nil {
		return fmt.Errorf("some checks failed")
	}

	// Data dir
	if info, err := os.Stat(cfg.Storage.DataDir); err != nil {
		printInfo("data directory %s does not exist yet (created on first run)", cfg.Storage.DataDir)
	} else if !info.IsDir() {
		printCheck(false, "data directory: %s is not a directory", cfg.Storage.DataDir)
		ok = false
	} else {
		printCheck(true, "data directory %s", cfg.Storage.DataDir)
	}

	// Log dir
	if cfg.Log.File != "" {
		logDir := filepath.Dir(cfg.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			printCheck(false, "log directory %s: %v", logDir, err)
			ok = false
		} else {
			printCheck(true, "log directory %s", logDir)
		}
	}

	// Cache file
	checkCacheHealth(cfg)

	// Channel reachability
	if !checkChannel(cfg) {
		ok = false
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

// checkCacheHealth inspects the cache file; problems here are
// informational since the next run rewrites it.
func checkCacheHealth(cfg *config.Config) {
	data, err := os.ReadFile(cfg.CachePath())
	if err != nil {
		printInfo("cache %s does not exist yet", cfg.CachePath())
		return
	}

	var posts []telegram.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		printInfo("cache %s is corrupt and will be rebuilt: %v", cfg.CachePath(), err)
		return
	}
	printCheck(true, "cache %s (%d posts)", cfg.CachePath(), len(posts))

	if len(posts) == 0 {
		return
	}
	if newest, err := time.Parse(time.RFC3339, posts[0].Date); err == nil {
		if time.Since(newest) > staleDays*24*time.Hour {
			daysAgo := int(time.Since(newest).Hours() / 24)
			printInfo("stale: newest cached post is %d days old", daysAgo)
		}
	}
}

func checkChannel(cfg *config.Config) bool {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequest(http.MethodGet, cfg.ChannelURL(), nil)
	if err != nil {
		printCheck(false, "channel url: %v", err)
		return false
	}
	req.Header.Set("User-Agent", telegram.DefaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		printCheck(false, "channel %s unreachable: %v", cfg.ChannelURL(), err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		printCheck(false, "channel %s returned %s", cfg.ChannelURL(), resp.Status)
		return false
	}
	printCheck(true, "channel %s reachable", cfg.ChannelURL())
	return true
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
