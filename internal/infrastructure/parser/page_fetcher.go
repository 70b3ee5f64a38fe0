package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/fetch"
	"AINewsDigest/internal/retry"
)

// maxItemsPerPage bounds how many containers are read from one listing
// page; anything below the fold is stale by definition.
const maxItemsPerPage = 10

// PageFetcher extracts items from HTML listing pages using the selector
// set configured on the source.
type PageFetcher struct {
	client   *http.Client
	retryCfg retry.Config
	logger   *slog.Logger
}

var _ fetch.Fetcher = (*PageFetcher)(nil)

// NewPageFetcher wires the HTTP client and retry policy for page
// downloads.
func NewPageFetcher(client *http.Client, retryCfg retry.Config, logger *slog.Logger) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = retry.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageFetcher{client: client, retryCfg: retryCfg, logger: logger}
}

// Name identifies the strategy in the fetch registry.
func (p *PageFetcher) Name() string { return "page" }

// Fetch downloads the listing page and walks its article containers.
// Connection and timeout failures are retried with exponential backoff;
// an HTTP error status is permanent and fails immediately. A source
// without selectors yields an empty result: site-specific scraping
// belongs in its own registered strategy.
func (p *PageFetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	if src.Selectors.Empty() {
		p.logger.Debug("source has no selector set, skipping", "source", src.Name)
		return nil, nil
	}

	var body []byte
	op := func() error {
		var err error
		body, _, err = fetchBody(ctx, p.client, src.URL)
		return err
	}
	shouldRetry := func(err error) bool {
		return !IsStatusError(err)
	}
	if err := retry.Do(ctx, p.retryCfg, "fetch "+src.Name, op, shouldRetry); err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		p.logger.Warn("page returned an empty body", "source", src.Name, "url", src.URL)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return p.extract(doc, src), nil
}

func (p *PageFetcher) extract(doc *goquery.Document, src domain.Source) []domain.RawItem {
	sel := src.Selectors

	containers := doc.Find(sel.Article)
	if containers.Length() == 0 {
		p.logger.Warn("no article containers matched, selector may be stale",
			"source", src.Name, "selector", sel.Article)
		return nil
	}

	origin := sourceOrigin(src.URL)

	var items []domain.RawItem
	containers.EachWithBreak(func(i int, container *goquery.Selection) bool {
		if i >= maxItemsPerPage {
			return false
		}

		title := strings.TrimSpace(selectText(container, sel.Title))
		link := strings.TrimSpace(selectAttr(container, sel.Link, "href"))
		if title == "" || link == "" {
			return true
		}

		items = append(items, domain.RawItem{
			Title:         title,
			Summary:       truncateSummary(strings.TrimSpace(selectText(container, sel.Summary))),
			Link:          resolveLink(origin, link),
			PublishedText: strings.TrimSpace(selectText(container, sel.Date)),
			Source:        src.Name,
			Category:      src.Category,
		})
		return true
	})

	return items
}

func selectText(container *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return container.Find(selector).First().Text()
}

func selectAttr(container *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	value, _ := container.Find(selector).First().Attr(attr)
	return value
}

// sourceOrigin reduces the page URL to scheme://host for resolving
// relative links.
func sourceOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

func resolveLink(origin, link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	if origin == "" {
		return link
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return origin + link
}
