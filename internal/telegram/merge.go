package telegram

import (
	"sort"
	"time"
)

// Merge reconciles a previously cached collection with a freshly
// scraped batch. Every id from either input appears exactly once in
// the result; nothing is ever deleted. Posts already cached are
// refined field by field:
//
//   - photo_url and video_url are replaced when the new value is
//     non-empty and different (the preview resolves media lazily, so
//     later scrapes can carry URLs earlier ones missed);
//   - views only ever increases;
//   - links are appended, old-then-new order, without duplicates;
//   - last_updated is bumped when anything above changed.
//
// The result is sorted by date descending. Dates are ISO-8601 strings,
// so plain string comparison orders them by time.
func Merge(old, fresh []Post) []Post {
	byID := make(map[string]*Post, len(old))
	order := make([]string, 0, len(old)+len(fresh))

	for i := range old {
		if old[i].ID == "" {
			continue
		}
		if _, ok := byID[old[i].ID]; ok {
			continue
		}
		p := old[i]
		byID[p.ID] = &p
		order = append(order, p.ID)
	}

	for _, np := range fresh {
		if np.ID == "" {
			continue
		}
		existing, ok := byID[np.ID]
		if !ok {
			p := np
			byID[p.ID] = &p
			order = append(order, p.ID)
			continue
		}
		if refine(existing, np) {
			existing.LastUpdated = timeNow().Format(time.RFC3339)
		}
	}

	merged := make([]Post, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date > merged[j].Date
	})

	return merged
}

// refine applies the field-level update rules to an existing post and
// reports whether anything changed.
func refine(old *Post, fresh Post) bool {
	changed := false

	if fresh.PhotoURL != "" && fresh.PhotoURL != old.PhotoURL {
		old.PhotoURL = fresh.PhotoURL
		changed = true
	}
	if fresh.VideoURL != "" && fresh.VideoURL != old.VideoURL {
		old.VideoURL = fresh.VideoURL
		changed = true
	}
	if fresh.Views > old.Views {
		old.Views = fresh.Views
		changed = true
	}

	for _, link := range fresh.Links {
		if !containsLink(old.Links, link) {
			old.Links = append(old.Links, link)
			changed = true
		}
	}

	return changed
}

func containsLink(links []string, link string) bool {
	for _, l := range links {
		if l == link {
			return true
		}
	}
	return false
}
