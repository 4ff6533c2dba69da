// Package store persists the post cache, the latest-posts projection,
// and the run status as JSON documents on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/chancache/internal/telegram"
)

// Store reads and writes the three JSON files downstream consumers
// depend on. Reads degrade to empty state on missing or corrupt files;
// writes go through a temp file and rename so a crash never leaves a
// half-written document behind.
type Store struct {
	cachePath  string
	latestPath string
	statusPath string
	logger     *slog.Logger
}

// New creates a store over the given file paths.
func New(cachePath, latestPath, statusPath string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cachePath) == "" {
		return nil, errors.New("store: cache path is required")
	}
	if strings.TrimSpace(latestPath) == "" {
		return nil, errors.New("store: latest path is required")
	}
	if strings.TrimSpace(statusPath) == "" {
		return nil, errors.New("store: status path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		cachePath:  cachePath,
		latestPath: latestPath,
		statusPath: statusPath,
		logger:     logger,
	}, nil
}

// LoadPosts returns the cached collection, or an empty one when the
// cache is missing or unreadable. A bad cache is logged, not fatal;
// the next successful cycle rewrites it.
func (s *Store) LoadPosts() []telegram.Post {
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("read cache failed", "path", s.cachePath, "error", err)
		}
		return []telegram.Post{}
	}

	var posts []telegram.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		s.logger.Error("decode cache failed, starting empty", "path", s.cachePath, "error", err)
		return []telegram.Post{}
	}
	return posts
}

// SavePosts sorts by date descending, truncates to cap entries, and
// atomically replaces the cache file.
func (s *Store) SavePosts(posts []telegram.Post, cap int) error {
	sorted := make([]telegram.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	if cap > 0 && len(sorted) > cap {
		sorted = sorted[:cap]
	}

	if err := writeJSON(s.cachePath, sorted); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	s.logger.Info("cache saved", "path", s.cachePath, "posts", len(sorted))
	return nil
}

// SaveLatest writes the first n entries of an already-sorted collection
// to a separate projection file for cheap external reads.
func (s *Store) SaveLatest(posts []telegram.Post, n int) error {
	if n > 0 && len(posts) > n {
		posts = posts[:n]
	}
	if err := writeJSON(s.latestPath, posts); err != nil {
		return fmt.Errorf("save latest: %w", err)
	}
	return nil
}

// LoadStatus returns the persisted run status, or the zero value when
// the file is missing or unreadable.
func (s *Store) LoadStatus() telegram.RunStatus {
	data, err := os.ReadFile(s.statusPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("read status failed", "path", s.statusPath, "error", err)
		}
		return telegram.RunStatus{}
	}

	var status telegram.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		s.logger.Error("decode status failed, starting empty", "path", s.statusPath, "error", err)
		return telegram.RunStatus{}
	}
	return status
}

// SaveStatus atomically replaces the status file.
func (s *Store) SaveStatus(status telegram.RunStatus) error {
	if err := writeJSON(s.statusPath, status); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

// writeJSON marshals v and writes it via temp-file-then-rename in the
// target directory, creating the directory if needed.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
