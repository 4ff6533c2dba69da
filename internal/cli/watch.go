package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/ppiankov/chancache/internal/config"
	"github.com/ppiankov/chancache/internal/logging"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run cycles on the configured interval until interrupted",
	RunE:  watchAction,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watchAction(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Log.File, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	// Singleton mode keeps a slow cycle from overlapping the next one.
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Schedule.Interval.Duration),
		gocron.NewTask(func() {
			if err := runCycle(ctx, cfg, logger); err != nil {
				logger.Error("cycle failed", "error", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}

	scheduler.Start()
	logger.Info("watch started",
		"channel", cfg.ChannelURL(),
		"interval", cfg.Schedule.Interval.Duration.String(),
	)

	<-ctx.Done()

	logger.Info("shutdown signal received")
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}
