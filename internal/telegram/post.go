// Package telegram scrapes a public channel's web preview page and
// reconciles the scraped posts against a previously cached collection.
package telegram

import "time"

// timeNow is the clock used for date fallbacks and last_updated stamps.
// It defaults to time.Now but can be overridden in tests.
var timeNow = time.Now

// Post is one normalized message extracted from the channel preview.
// The JSON field names are a compatibility contract with downstream
// consumers of the cache files and must not change.
type Post struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Text        string   `json:"text"`
	PhotoURL    string   `json:"photo_url"`
	VideoURL    string   `json:"video_url"`
	Links       []string `json:"links"`
	Views       int      `json:"views"`
	LastUpdated string   `json:"last_updated"`
}

// HasContent reports whether the post carries anything worth keeping.
// Posts with no text and no media are dropped by the extractor.
func (p Post) HasContent() bool {
	return p.Text != "" || p.PhotoURL != "" || p.VideoURL != ""
}

// RunStatus describes the health of the scrape-and-merge cycles.
// Counters are monotonically non-decreasing across the store's lifetime.
type RunStatus struct {
	LastRun       string `json:"last_run,omitempty"`
	LastSuccess   string `json:"last_success,omitempty"`
	TotalRuns     int    `json:"total_runs"`
	Errors        int    `json:"errors"`
	LastPostCount int    `json:"last_post_count"`
	NewPostsAdded int    `json:"new_posts_added"`
}
