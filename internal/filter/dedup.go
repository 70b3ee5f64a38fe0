package filter

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// Deduplicator removes near-duplicate items from a scored batch, always
// keeping the highest-scored representative of each story. An optional
// history index extends the check across runs to already published
// content.
type Deduplicator struct {
	threshold float64
	history   ports.HistoryIndex
	window    int
	logger    *slog.Logger
}

// NewDeduplicator builds the suppressor. A duplicate is declared only
// when BOTH title similarity and summary similarity exceed the
// threshold; similar headlines over different stories survive.
func NewDeduplicator(threshold float64, logger *slog.Logger) *Deduplicator {
	if threshold <= 0 {
		threshold = 0.7
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{threshold: threshold, logger: logger}
}

// WithHistory adds cross-run duplicate checks against the given index.
// The window bounds how many recent records are pulled for similarity
// comparison.
func (d *Deduplicator) WithHistory(history ports.HistoryIndex, window int) *Deduplicator {
	d.history = history
	d.window = window
	return d
}

// Dedupe returns the unique items ordered by descending score. The input
// slice is not mutated. History failures degrade to in-batch
// deduplication only.
func (d *Deduplicator) Dedupe(ctx context.Context, items []domain.NewsItem) []domain.NewsItem {
	if len(items) == 0 {
		return nil
	}

	ordered := make([]domain.NewsItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	knownLinks, knownTitles, recent := d.loadHistory(ctx, ordered)

	unique := make([]domain.NewsItem, 0, len(ordered))
	seenTitles := make(map[string]bool, len(ordered))

	for _, item := range ordered {
		titleKey := strings.ToLower(item.Title)

		if seenTitles[titleKey] {
			continue
		}
		if knownLinks[item.Link] || knownTitles[titleKey] {
			d.logger.Debug("dropping already published item", "title", item.Title)
			continue
		}
		if d.similarToKept(item, unique) || d.similarToRecent(item, recent) {
			d.logger.Debug("dropping near-duplicate item", "title", item.Title)
			continue
		}

		seenTitles[titleKey] = true
		unique = append(unique, item)
	}

	return unique
}

func (d *Deduplicator) similarToKept(item domain.NewsItem, kept []domain.NewsItem) bool {
	for _, other := range kept {
		if Similarity(item.Title, other.Title) > d.threshold &&
			Similarity(item.Summary, other.Summary) > d.threshold {
			return true
		}
	}
	return false
}

func (d *Deduplicator) similarToRecent(item domain.NewsItem, recent []domain.PublishedRecord) bool {
	for _, rec := range recent {
		if Similarity(item.Title, rec.Title) > d.threshold &&
			Similarity(item.Summary, rec.Summary) > d.threshold {
			return true
		}
	}
	return false
}

func (d *Deduplicator) loadHistory(ctx context.Context, items []domain.NewsItem) (map[string]bool, map[string]bool, []domain.PublishedRecord) {
	if d.history == nil {
		return nil, nil, nil
	}

	links := make([]string, 0, len(items))
	titles := make([]string, 0, len(items))
	for _, item := range items {
		links = append(links, item.Link)
		titles = append(titles, strings.ToLower(item.Title))
	}

	knownLinks, err := d.history.KnownLinks(ctx, links)
	if err != nil {
		d.logger.Warn("link history lookup failed", "error", err)
		knownLinks = nil
	}

	knownTitles, err := d.history.KnownTitles(ctx, titles)
	if err != nil {
		d.logger.Warn("title history lookup failed", "error", err)
		knownTitles = nil
	}

	recent, err := d.history.Recent(ctx, d.window)
	if err != nil {
		d.logger.Warn("recent history lookup failed", "error", err)
		recent = nil
	}

	return knownLinks, knownTitles, recent
}
