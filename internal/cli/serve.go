package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/chancache/internal/config"
	"github.com/ppiankov/chancache/internal/feed"
	"github.com/ppiankov/chancache/internal/logging"
	"github.com/ppiankov/chancache/internal/store"
	"github.com/ppiankov/chancache/internal/telegram"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve cached posts over HTTP",
	Long: `Serve exposes the cache as a small read-only API:

  /api/posts   all cached posts
  /api/latest  the most recent posts
  /api/status  run bookkeeping
  /feed.xml    Atom feed of the latest posts

Responses are read from the data files on every request, so a watch
process updating them in the background is picked up immediately.`,
	RunE: serveAction,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Log.File, cfg.Log.Level)
	st, err := store.New(cfg.CachePath(), cfg.LatestPath(), cfg.StatusPath(), logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           newAPIHandler(cfg, st, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Serve.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	return nil
}

func newAPIHandler(cfg *config.Config, st *store.Store, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, logger, nonNilPosts(st.LoadPosts()))
	})

	mux.HandleFunc("GET /api/latest", func(w http.ResponseWriter, _ *http.Request) {
		posts := st.LoadPosts()
		if len(posts) > cfg.Channel.LatestCount {
			posts = posts[:cfg.Channel.LatestCount]
		}
		writeJSONResponse(w, logger, nonNilPosts(posts))
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, logger, st.LoadStatus())
	})

	mux.HandleFunc("GET /feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		posts := st.LoadPosts()
		if len(posts) > cfg.Channel.LatestCount {
			posts = posts[:cfg.Channel.LatestCount]
		}
		atom, err := feed.ToAtom(feed.Build(cfg.FeedTitle(), cfg.ChannelURL(), posts))
		if err != nil {
			logger.Error("render feed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
		fmt.Fprint(w, atom)
	})

	return mux
}

func writeJSONResponse(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Error("encode response", "error", err)
	}
}

// nonNilPosts keeps an empty cache rendering as [] instead of null.
func nonNilPosts(posts []telegram.Post) []telegram.Post {
	if posts == nil {
		return []telegram.Post{}
	}
	return posts
}
