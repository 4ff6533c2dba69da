package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/chancache/internal/config"
	"github.com/ppiankov/chancache/internal/feed"
	"github.com/ppiankov/chancache/internal/logging"
	"github.com/ppiankov/chancache/internal/store"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Write an Atom feed of the latest cached posts",
	RunE:  feedAction,
}

func init() {
	rootCmd.AddCommand(feedCmd)
}

func feedAction(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("", "error")
	st, err := store.New(cfg.CachePath(), cfg.LatestPath(), cfg.StatusPath(), logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	posts := st.LoadPosts()
	if len(posts) > cfg.Channel.LatestCount {
		posts = posts[:cfg.Channel.LatestCount]
	}

	atom, err := feed.ToAtom(feed.Build(cfg.FeedTitle(), cfg.ChannelURL(), posts))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FeedPath()), 0o755); err != nil {
		return fmt.Errorf("create feed dir: %w", err)
	}
	if err := os.WriteFile(cfg.FeedPath(), []byte(atom), 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}

	fmt.Printf("Wrote %d posts to %s\n", len(posts), cfg.FeedPath())
	return nil
}
