package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/chancache/internal/telegram"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(
		filepath.Join(dir, "data", "cached_posts.json"),
		filepath.Join(dir, "data", "latest_posts.json"),
		filepath.Join(dir, "data", "parser_status.json"),
		nil,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, dir
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "l", "s", nil); err == nil {
		t.Error("expected error for empty cache path")
	}
	if _, err := New("c", "", "s", nil); err == nil {
		t.Error("expected error for empty latest path")
	}
	if _, err := New("c", "l", "", nil); err == nil {
		t.Error("expected error for empty status path")
	}
}

func TestLoadPosts_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	if posts := s.LoadPosts(); len(posts) != 0 {
		t.Errorf("got %d posts from missing cache, want 0", len(posts))
	}
}

func TestLoadPosts_Corrupt(t *testing.T) {
	s, _ := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if posts := s.LoadPosts(); len(posts) != 0 {
		t.Errorf("got %d posts from corrupt cache, want 0", len(posts))
	}
}

func TestSavePosts_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	posts := []telegram.Post{
		{ID: "c/2", Date: "2024-05-02T00:00:00+00:00", Text: "two", Links: []string{"https://a"}},
		{ID: "c/1", Date: "2024-05-01T00:00:00+00:00", Text: "one", Links: []string{}},
	}
	if err := s.SavePosts(posts, 100); err != nil {
		t.Fatalf("SavePosts: %v", err)
	}

	loaded := s.LoadPosts()
	if len(loaded) != 2 {
		t.Fatalf("got %d posts, want 2", len(loaded))
	}
	if loaded[0].ID != "c/2" {
		t.Errorf("first post = %q, want newest c/2", loaded[0].ID)
	}
	if loaded[0].Links[0] != "https://a" {
		t.Errorf("links did not survive the round trip: %v", loaded[0].Links)
	}
}

func TestSavePosts_CapKeepsMostRecent(t *testing.T) {
	s, _ := newTestStore(t)

	posts := make([]telegram.Post, 25)
	for i := range posts {
		posts[i] = telegram.Post{
			ID:   fmt.Sprintf("c/%d", i+1),
			Date: fmt.Sprintf("2024-05-%02dT00:00:00+00:00", i+1),
			Text: "post",
		}
	}

	if err := s.SavePosts(posts, 20); err != nil {
		t.Fatalf("SavePosts: %v", err)
	}

	loaded := s.LoadPosts()
	if len(loaded) != 20 {
		t.Fatalf("got %d posts, want exactly 20", len(loaded))
	}
	if loaded[0].ID != "c/25" {
		t.Errorf("first = %q, want the newest c/25", loaded[0].ID)
	}
	if loaded[19].ID != "c/6" {
		t.Errorf("last = %q, want c/6 (the 5 oldest dropped)", loaded[19].ID)
	}
}

func TestSavePosts_FieldNames(t *testing.T) {
	s, _ := newTestStore(t)

	posts := []telegram.Post{{
		ID:          "c/1",
		Date:        "2024-05-01T00:00:00+00:00",
		Text:        "hello",
		PhotoURL:    "p.jpg",
		VideoURL:    "v.mp4",
		Links:       []string{"https://a"},
		Views:       7,
		LastUpdated: "2024-05-01T01:00:00Z",
	}}
	if err := s.SavePosts(posts, 10); err != nil {
		t.Fatalf("SavePosts: %v", err)
	}

	raw, err := os.ReadFile(s.cachePath)
	if err != nil {
		t.Fatal(err)
	}
	// Downstream consumers read these exact keys.
	for _, key := range []string{`"id"`, `"date"`, `"text"`, `"photo_url"`, `"video_url"`, `"links"`, `"views"`, `"last_updated"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("cache file missing field %s", key)
		}
	}
}

func TestSaveLatest(t *testing.T) {
	s, _ := newTestStore(t)

	posts := make([]telegram.Post, 30)
	for i := range posts {
		posts[i] = telegram.Post{ID: fmt.Sprintf("c/%d", 30-i), Date: fmt.Sprintf("2024-05-%02dT00:00:00+00:00", 30-i), Text: "p"}
	}

	if err := s.SaveLatest(posts, 20); err != nil {
		t.Fatalf("SaveLatest: %v", err)
	}

	data, err := os.ReadFile(s.latestPath)
	if err != nil {
		t.Fatal(err)
	}
	var latest []telegram.Post
	if err := json.Unmarshal(data, &latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if len(latest) != 20 {
		t.Fatalf("got %d posts, want 20", len(latest))
	}
	if latest[0].ID != "c/30" {
		t.Errorf("first = %q, want head of the sorted collection", latest[0].ID)
	}
}

func TestStatus_RoundTripAndDefault(t *testing.T) {
	s, _ := newTestStore(t)

	if st := s.LoadStatus(); st.TotalRuns != 0 || st.LastRun != "" {
		t.Errorf("missing status should be zero value, got %+v", st)
	}

	want := telegram.RunStatus{
		LastRun:       "2024-05-01T10:00:00Z",
		LastSuccess:   "2024-05-01T10:00:00Z",
		TotalRuns:     3,
		Errors:        1,
		LastPostCount: 42,
		NewPostsAdded: 7,
	}
	if err := s.SaveStatus(want); err != nil {
		t.Fatalf("SaveStatus: %v", err)
	}
	if got := s.LoadStatus(); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWriteJSON_LeavesNoTempFiles(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.SavePosts([]telegram.Post{{ID: "c/1", Date: "2024-05-01T00:00:00+00:00", Text: "x"}}, 10); err != nil {
		t.Fatalf("SavePosts: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(s.cachePath))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
