package telegram

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	styleURLRe = regexp.MustCompile(`url\('(.*?)'\)`)
	digitsRe   = regexp.MustCompile(`\d+`)
)

// channelHosts are hosts whose links point back at the source channel
// and are therefore not collected as outbound links.
var channelHosts = map[string]bool{
	"t.me":        true,
	"telegram.me": true,
}

// extractPost converts one message wrapper into a Post. It returns
// false for fragments without a message id or without any content;
// those are expected noise (ads, service rows), not errors.
func extractPost(wrap *goquery.Selection) (Post, bool) {
	id := strings.TrimSpace(wrap.Find("div.tgme_widget_message").AttrOr("data-post", ""))
	if id == "" {
		return Post{}, false
	}

	post := Post{
		ID:          id,
		Date:        extractDate(wrap),
		Links:       []string{},
		LastUpdated: timeNow().Format(time.RFC3339),
	}

	if text := wrap.Find("div.tgme_widget_message_text").First(); text.Length() > 0 {
		text.Find("br").ReplaceWithHtml("\n")
		post.Text = strings.TrimSpace(text.Text())
		post.Links = extractLinks(text)
	}

	if photo := wrap.Find("a.tgme_widget_message_photo_wrap").First(); photo.Length() > 0 {
		post.PhotoURL = extractMediaURL(photo)
	}
	if video := wrap.Find("video.tgme_widget_message_video").First(); video.Length() > 0 {
		post.VideoURL = extractMediaURL(video)
	}

	post.Views = extractViews(wrap)

	// Albums render the photos inside a grouped wrapper; take one to
	// fill the primary slot if nothing was found above.
	if post.PhotoURL == "" {
		wrap.Find("div.tgme_widget_message_grouped_wrap a.tgme_widget_message_photo_wrap").
			EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				post.PhotoURL = extractMediaURL(sel)
				return post.PhotoURL == ""
			})
	}

	if !post.HasContent() {
		return Post{}, false
	}
	return post, true
}

// extractDate prefers the machine-readable datetime attribute, falls
// back to the anchor's visible text, then to the current time. The
// datetime attribute is ISO-8601, which keeps string sorting correct.
func extractDate(wrap *goquery.Selection) string {
	anchor := wrap.Find("a.tgme_widget_message_date").First()
	if dt, ok := anchor.Find("time").Attr("datetime"); ok && dt != "" {
		return dt
	}
	if text := strings.TrimSpace(anchor.Text()); text != "" {
		return text
	}
	return timeNow().Format(time.RFC3339)
}

// extractLinks collects outbound hrefs from the text block in
// first-seen order, skipping links back to the channel's own domain
// and exact duplicates.
func extractLinks(text *goquery.Selection) []string {
	links := []string{}
	seen := make(map[string]bool)

	text.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || seen[href] {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil || parsed.Host == "" || channelHosts[parsed.Host] {
			return
		}
		seen[href] = true
		links = append(links, href)
	})

	return links
}

// extractMediaURL resolves a media element's URL with the priority the
// preview markup uses: background-image style, then a direct src
// attribute, then the first descendant media element with a src.
func extractMediaURL(sel *goquery.Selection) string {
	if style := sel.AttrOr("style", ""); style != "" {
		if m := styleURLRe.FindStringSubmatch(style); m != nil {
			return m[1]
		}
	}
	if src, ok := sel.Attr("src"); ok && src != "" {
		return src
	}

	var found string
	sel.Find("img, video, source").EachWithBreak(func(_ int, media *goquery.Selection) bool {
		if src, ok := media.Attr("src"); ok && src != "" {
			found = src
			return false
		}
		return true
	})
	return found
}

// extractViews parses the view counter text. Non-digit characters are
// dropped; absent or unparseable counters yield 0.
func extractViews(wrap *goquery.Selection) int {
	text := strings.TrimSpace(wrap.Find("span.tgme_widget_message_views").Text())
	if text == "" {
		return 0
	}
	digits := digitsRe.FindAllString(strings.ReplaceAll(text, " ", ""), -1)
	if len(digits) == 0 {
		return 0
	}
	views, err := strconv.Atoi(strings.Join(digits, ""))
	if err != nil {
		return 0
	}
	return views
}
