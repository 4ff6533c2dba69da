package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultUserAgent mirrors a desktop browser; the preview page
	// serves a stripped-down variant to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	fetchMaxRetries = 2
	maxBodySize     = 10 << 20 // 10 MiB per page
)

// sleepFunc is the politeness delay between consecutive page fetches.
// It defaults to time.Sleep but can be overridden in tests.
var sleepFunc = time.Sleep

// FetcherConfig holds the knobs for one channel fetch loop.
type FetcherConfig struct {
	ChannelURL string        // preview page, e.g. https://t.me/s/channel
	MaxPosts   int           // stop after this many distinct posts
	PageDelay  time.Duration // pause between consecutive page fetches
	Timeout    time.Duration // per-request timeout
	UserAgent  string
}

// Fetcher walks the channel preview pages backwards in time through
// the "load older messages" link, extracting distinct posts up to a cap.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a fetcher for one channel.
func NewFetcher(cfg FetcherConfig, logger *slog.Logger) (*Fetcher, error) {
	if strings.TrimSpace(cfg.ChannelURL) == "" {
		return nil, errors.New("telegram: channel URL is required")
	}
	if cfg.MaxPosts < 1 {
		return nil, errors.New("telegram: max posts must be at least 1")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Fetch accumulates distinct posts, newest page first, until the cap
// is reached, the channel runs out of pages, or ctx is cancelled.
// When a page fetch fails the posts gathered so far are returned
// together with the error; partial results are valid.
func (f *Fetcher) Fetch(ctx context.Context) ([]Post, error) {
	posts := []Post{}
	seen := make(map[string]bool)
	pageURL := f.cfg.ChannelURL
	pages := 0

	for len(posts) < f.cfg.MaxPosts && pageURL != "" {
		if ctx.Err() != nil {
			f.logger.Info("fetch cancelled", "pages", pages, "posts", len(posts))
			return posts, nil
		}
		if pages > 0 {
			sleepFunc(f.cfg.PageDelay)
		}

		doc, err := f.fetchPage(ctx, pageURL)
		if err != nil {
			f.logger.Error("page fetch failed", "url", pageURL, "error", err)
			return posts, fmt.Errorf("fetch %s: %w", pageURL, err)
		}
		pages++

		doc.Find("div.tgme_widget_message_wrap").EachWithBreak(func(_ int, wrap *goquery.Selection) bool {
			if ctx.Err() != nil || len(posts) >= f.cfg.MaxPosts {
				return false
			}
			post, ok := extractPost(wrap)
			if !ok || seen[post.ID] {
				return true
			}
			seen[post.ID] = true
			posts = append(posts, post)
			return true
		})

		pageURL = nextPageURL(doc, pageURL)
	}

	f.logger.Info("fetch finished", "pages", pages, "posts", len(posts))
	return posts, nil
}

// fetchPage downloads and parses one preview page, retrying transient
// failures with exponential backoff.
func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchMaxRetries), ctx)

	body, err := backoff.RetryWithData(func() (string, error) {
		return f.fetchOnce(ctx, pageURL)
	}, bo)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		// Only server-side trouble is worth retrying.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// nextPageURL finds the "load older messages" link and resolves it
// against the current page. Empty means the channel is exhausted.
func nextPageURL(doc *goquery.Document, current string) string {
	href, ok := doc.Find("a.tme_messages_more").First().Attr("href")
	if !ok || href == "" {
		return ""
	}

	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
