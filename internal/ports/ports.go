package ports

import (
	"context"
	"time"

	"AINewsDigest/internal/domain"
)

// NewsSource pulls raw candidate items from all configured upstream sources.
type NewsSource interface {
	FetchAll(ctx context.Context) ([]domain.RawItem, error)
}

// HistoryIndex answers whether an item was already published and exposes a
// trailing window of recent records for similarity checks. Title lookups
// are case-insensitive; KnownTitles keys its result by lowercased title.
type HistoryIndex interface {
	KnownLinks(ctx context.Context, links []string) (map[string]bool, error)
	KnownTitles(ctx context.Context, titles []string) (map[string]bool, error)
	Recent(ctx context.Context, limit int) ([]domain.PublishedRecord, error)
	MarkPublished(ctx context.Context, rec domain.PublishedRecord) error
}

// ArticleStore persists generated articles.
type ArticleStore interface {
	SaveArticle(ctx context.Context, article domain.GeneratedArticle) error
}

// Generator produces long-form text for one selected item.
type Generator interface {
	Generate(ctx context.Context, item domain.NewsItem) (domain.GeneratedArticle, error)
	OptimizeTitle(ctx context.Context, title string) (string, error)
}

// Notifier streams per-article and run-summary messages to outbound channels.
type Notifier interface {
	NotifyArticle(ctx context.Context, article domain.GeneratedArticle) error
	NotifySummary(ctx context.Context, report domain.RunReport) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
