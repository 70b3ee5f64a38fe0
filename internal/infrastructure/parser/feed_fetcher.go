package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/fetch"
)

const summaryRuneLimit = 300

var markupExpr = regexp.MustCompile(`<[^>]*>`)

// FeedFetcher retrieves RSS and Atom sources.
type FeedFetcher struct {
	client *http.Client
	logger *slog.Logger
}

var _ fetch.Fetcher = (*FeedFetcher)(nil)

// NewFeedFetcher wires the HTTP client used for feed downloads.
func NewFeedFetcher(client *http.Client, logger *slog.Logger) *FeedFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedFetcher{client: client, logger: logger}
}

// Name identifies the strategy in the fetch registry.
func (f *FeedFetcher) Name() string { return "feed" }

// Fetch downloads and parses one feed source. When the primary endpoint
// fails or parses to zero entries, a configured fallback URL is tried
// exactly once. Broken entries are skipped, never fatal.
func (f *FeedFetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	feed, err := f.download(ctx, src, src.URL)

	if err != nil || len(feed.Items) == 0 {
		if src.FallbackURL == "" {
			if err != nil {
				return nil, err
			}
			f.logger.Warn("feed has no entries", "source", src.Name, "url", src.URL)
			return nil, nil
		}

		if err != nil {
			f.logger.Warn("primary feed url failed, trying fallback",
				"source", src.Name, "error", err)
		} else {
			f.logger.Warn("primary feed url has no entries, trying fallback",
				"source", src.Name, "url", src.URL)
		}

		feed, err = f.download(ctx, src, src.FallbackURL)
		if err != nil {
			return nil, err
		}
	}

	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := f.extractEntry(entry, src)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (f *FeedFetcher) download(ctx context.Context, src domain.Source, url string) (*gofeed.Feed, error) {
	body, contentType, err := fetchBody(ctx, f.client, url)
	if err != nil {
		return nil, err
	}

	if !feedLikeContentType(contentType) {
		f.logger.Warn("content type does not look like a feed, parsing anyway",
			"source", src.Name, "contentType", contentType)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func feedLikeContentType(value string) bool {
	value = strings.ToLower(value)
	return strings.Contains(value, "xml") ||
		strings.Contains(value, "rss") ||
		strings.Contains(value, "atom")
}

// extractEntry maps one feed entry to a raw item. Entries without a title
// or link are dropped; everything else is tolerated.
func (f *FeedFetcher) extractEntry(entry *gofeed.Item, src domain.Source) (domain.RawItem, bool) {
	if entry == nil {
		return domain.RawItem{}, false
	}

	title := strings.TrimSpace(entry.Title)
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return domain.RawItem{}, false
	}

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}

	published := entry.Published
	if published == "" {
		published = entry.Updated
	}
	if published == "" {
		published = entry.Custom["pubDate"]
	}

	return domain.RawItem{
		Title:         title,
		Summary:       truncateSummary(stripMarkup(summary)),
		Link:          link,
		PublishedText: strings.TrimSpace(published),
		Source:        src.Name,
		Category:      src.Category,
	}, true
}

// stripMarkup reduces an HTML-laden fragment to plain text. If the
// fragment does not parse, tags are stripped with a crude regex instead.
func stripMarkup(value string) string {
	if value == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return strings.TrimSpace(markupExpr.ReplaceAllString(value, " "))
	}
	return strings.TrimSpace(doc.Text())
}

// truncateSummary bounds a summary to 300 runes, marking the cut.
func truncateSummary(value string) string {
	runes := []rune(value)
	if len(runes) <= summaryRuneLimit {
		return value
	}
	return string(runes[:summaryRuneLimit]) + "..."
}
