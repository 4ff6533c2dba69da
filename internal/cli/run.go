package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/chancache/internal/config"
	"github.com/ppiankov/chancache/internal/logging"
	"github.com/ppiankov/chancache/internal/store"
	"github.com/ppiankov/chancache/internal/telegram"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the channel once and update the cache",
	RunE:  runAction,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Log.File, cfg.Log.Level)
	return runCycle(cmd.Context(), cfg, logger)
}

// runCycle executes one fetch-merge-persist pass. Failures inside the
// cycle are recorded in the status file and logged; the returned error
// reports them to interactive callers, while the watch loop only logs
// it and keeps the process alive for the next cycle.
func runCycle(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := store.New(cfg.CachePath(), cfg.LatestPath(), cfg.StatusPath(), logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	fetcher, err := telegram.NewFetcher(telegram.FetcherConfig{
		ChannelURL: cfg.ChannelURL(),
		MaxPosts:   cfg.Channel.MaxPosts,
		PageDelay:  cfg.Fetch.PageDelay.Duration,
		Timeout:    cfg.Fetch.Timeout.Duration,
		UserAgent:  cfg.Fetch.UserAgent,
	}, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	status := st.LoadStatus()
	status.LastRun = time.Now().Format(time.RFC3339)
	status.TotalRuns++

	cached := st.LoadPosts()
	logger.Info("cycle started", "channel", cfg.ChannelURL(), "cached", len(cached))

	fresh, fetchErr := fetcher.Fetch(ctx)
	if fetchErr != nil {
		// Partial results are still merged below; the failed page
		// shows up in the error counter.
		status.Errors++
	}

	runErr := fetchErr
	if len(fresh) > 0 {
		merged := telegram.Merge(cached, fresh)

		if err := st.SavePosts(merged, cfg.Channel.MaxPosts); err != nil {
			logger.Error("cache write failed, cycle result lost", "error", err)
			status.Errors++
			if runErr == nil {
				runErr = err
			}
		} else {
			if err := st.SaveLatest(merged, cfg.Channel.LatestCount); err != nil {
				logger.Error("latest projection write failed", "error", err)
			}

			status.LastSuccess = time.Now().Format(time.RFC3339)
			status.LastPostCount = len(merged)
			status.NewPostsAdded = len(fresh)

			logCycleStats(logger, merged, len(fresh))
		}
	} else if fetchErr == nil {
		logger.Warn("no posts fetched", "channel", cfg.ChannelURL())
	}

	if err := st.SaveStatus(status); err != nil {
		logger.Error("status write failed", "error", err)
	}

	return runErr
}

func logCycleStats(logger *slog.Logger, posts []telegram.Post, fetched int) {
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

	avgViews := 0
	if len(posts) > 0 {
		avgViews = views / len(posts)
	}

	logger.Info("cycle finished",
		"total", len(posts),
		"fetched", fetched,
		"with_photo", withPhoto,
		"with_video", withVideo,
		"with_links", withLinks,
		"avg_views", avgViews,
	)
}
