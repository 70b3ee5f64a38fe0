package filter

import (
	"log/slog"
	"strings"
	"time"

	"AINewsDigest/internal/domain"
)

// dateLayouts covers the publish-date shapes observed across feeds and
// listing pages. Order matters only for performance; the first layout
// that parses wins.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02.01.2006",
	"02/01/2006",
}

// Normalizer converts raw fetch output into canonical news items.
type Normalizer struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewNormalizer wires the component logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{now: time.Now, logger: logger}
}

// Normalize validates the item and parses its publish date. Items
// without a title or link are rejected. A date string that does not
// parse is replaced with the current time and the item is flagged as
// guessed, so an unparsable date never hides an otherwise fresh story.
func (n *Normalizer) Normalize(raw domain.RawItem) (domain.NewsItem, bool) {
	title := strings.TrimSpace(raw.Title)
	link := strings.TrimSpace(raw.Link)
	if title == "" || link == "" {
		return domain.NewsItem{}, false
	}

	publishedAt, guessed := n.parseDate(raw.PublishedText)

	return domain.NewsItem{
		Title:       title,
		Summary:     strings.TrimSpace(raw.Summary),
		Link:        link,
		PublishedAt: publishedAt,
		DateGuessed: guessed,
		Source:      raw.Source,
		Category:    raw.Category,
	}, true
}

func (n *Normalizer) parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return n.now(), true
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, false
		}
	}

	n.logger.Debug("publish date did not parse, treating item as fresh", "value", value)
	return n.now(), true
}
