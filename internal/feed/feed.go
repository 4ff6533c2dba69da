// Package feed renders cached posts as an Atom feed for external readers.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/ppiankov/chancache/internal/telegram"
)

const snippetLen = 120

// Build converts a date-descending post collection into a feed.
// channelURL is the public preview page used for feed and item links.
func Build(title, channelURL string, posts []telegram.Post) *feeds.Feed {
	now := time.Now()
	f := &feeds.Feed{
		Title:       title,
		Description: "Mirror of " + channelURL,
		Link:        &feeds.Link{Href: channelURL},
		Created:     now,
		Updated:     now,
	}

	for _, p := range posts {
		f.Items = append(f.Items, &feeds.Item{
			Id:          "tag:t.me:" + p.ID,
			Title:       itemTitle(p),
			Link:        &feeds.Link{Href: postLink(p)},
			Description: itemDescription(p),
			Created:     parseDate(p.Date),
		})
	}

	return f
}

// ToAtom renders the feed as an Atom document.
func ToAtom(f *feeds.Feed) (string, error) {
	atom, err := f.ToAtom()
	if err != nil {
		return "", fmt.Errorf("render atom: %w", err)
	}
	return atom, nil
}

// itemTitle is the first line of the text, clipped, or a media marker
// for text-less posts.
func itemTitle(p telegram.Post) string {
	line := p.Text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		if p.VideoURL != "" {
			return "[video] " + p.ID
		}
		return "[photo] " + p.ID
	}
	return firstNRunes(line, snippetLen)
}

func itemDescription(p telegram.Post) string {
	var b strings.Builder
	b.WriteString(p.Text)
	if p.PhotoURL != "" {
		fmt.Fprintf(&b, "\n\nPhoto: %s", p.PhotoURL)
	}
	if p.VideoURL != "" {
		fmt.Fprintf(&b, "\n\nVideo: %s", p.VideoURL)
	}
	if p.Views > 0 {
		fmt.Fprintf(&b, "\n\nViews: %d", p.Views)
	}
	return strings.TrimSpace(b.String())
}

// postLink rebuilds the public message URL from the "channel/msg" id.
func postLink(p telegram.Post) string {
	return "https://t.me/" + p.ID
}

// parseDate handles the preview's ISO-8601 stamps; fallback text dates
// yield the zero time, which feed readers render as unset.
func parseDate(date string) time.Time {
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t
	}
	return time.Time{}
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
