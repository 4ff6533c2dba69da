package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/chancache/internal/config"
	"github.com/ppiankov/chancache/internal/logging"
	"github.com/ppiankov/chancache/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run status and cache statistics",
	RunE:  statusAction,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusAction(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("", "error")
	st, err := store.New(cfg.CachePath(), cfg.LatestPath(), cfg.StatusPath(), logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	status := st.LoadStatus()
	posts := st.LoadPosts()

	fmt.Printf("Channel:      %s\n", cfg.ChannelURL())
	fmt.Printf("Last run:     %s\n", formatStamp(status.LastRun))
	fmt.Printf("Last success: %s\n", formatStamp(status.LastSuccess))
	fmt.Printf("Total runs:   %d (%d errors)\n", status.TotalRuns, status.Errors)
	if status.TotalRuns > 0 {
		fmt.Printf("Last cycle:   %d posts in cache, %d fetched\n", status.LastPostCount, status.NewPostsAdded)
	}
	fmt.Println()

	if len(posts) == 0 {
		fmt.Println("Cache is empty. Run 'chancache run' first.")
		return nil
	}

	withPhoto, withVideo, withLinks, views := 0, 0, 0, 0
	for _, p := range posts {
		if p.PhotoURL != "" {
			withPhoto++
		}
		if p.VideoURL != "" {
			withVideo++
		}
		if len(p.Links) > 0 {
			withLinks++
		}
		views += p.Views
	}

	fmt.Printf("Cached posts: %d (cap %d)\n", len(posts), cfg.Channel.MaxPosts)
	fmt.Printf("  with photo: %d\n", withPhoto)
	fmt.Printf("  with video: %d\n", withVideo)
	fmt.Printf("  with links: %d\n", withLinks)
	fmt.Printf("Total views:  %s (avg %s per post)\n",
		humanize.Comma(int64(views)), humanize.Comma(int64(views/len(posts))))
	fmt.Printf("Newest post:  %s\n", formatStamp(posts[0].Date))

	return nil
}

// formatStamp renders an ISO-8601 stamp with a relative suffix, or
// "never" for absent values. Non-ISO fallback dates pass through as-is.
func formatStamp(stamp string) string {
	if stamp == "" {
		return "never"
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04:05"), humanize.Time(t))
}
