package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/filter"
	"AINewsDigest/internal/ports"
)

// PipelineDeps wires the filter stages and driven adapters into the
// orchestration pipeline.
type PipelineDeps struct {
	Source     ports.NewsSource
	Normalizer *filter.Normalizer
	Classifier *filter.Classifier
	Scorer     *filter.Scorer
	Dedup      *filter.Deduplicator
	Generator  ports.Generator
	Stores     []ports.ArticleStore
	History    ports.HistoryIndex
	Notifier   ports.Notifier
	Logger     *slog.Logger

	AcceptThreshold float64
	MaxArticles     int
	OptimizeTitles  bool
}

// Pipeline implements the collect-filter-generate workflow.
type Pipeline struct {
	source     ports.NewsSource
	normalizer *filter.Normalizer
	classifier *filter.Classifier
	scorer     *filter.Scorer
	dedup      *filter.Deduplicator
	generator  ports.Generator
	stores     []ports.ArticleStore
	history    ports.HistoryIndex
	notifier   ports.Notifier
	logger     *slog.Logger

	acceptThreshold float64
	maxArticles     int
	optimizeTitles  bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.AcceptThreshold <= 0 {
		deps.AcceptThreshold = 60
	}
	if deps.MaxArticles <= 0 {
		deps.MaxArticles = 5
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		source:          deps.Source,
		normalizer:      deps.Normalizer,
		classifier:      deps.Classifier,
		scorer:          deps.Scorer,
		dedup:           deps.Dedup,
		generator:       deps.Generator,
		stores:          deps.Stores,
		history:         deps.History,
		notifier:        deps.Notifier,
		logger:          logger,
		acceptThreshold: deps.AcceptThreshold,
		maxArticles:     deps.MaxArticles,
		optimizeTitles:  deps.OptimizeTitles,
	}
}

// Collect runs the ingestion and filter stages: fetch, normalize,
// classify, score, dedupe, rank, threshold. Zero eligible items at any
// stage is a normal terminal state, not an error.
func (p *Pipeline) Collect(ctx context.Context) (domain.FilterResult, domain.RunReport, error) {
	report := domain.RunReport{StartedAt: time.Now()}

	if p.source == nil {
		return domain.FilterResult{}, report, fmt.Errorf("news source is not configured")
	}

	raw, err := p.source.FetchAll(ctx)
	if err != nil {
		report.FinishedAt = time.Now()
		return domain.FilterResult{}, report, fmt.Errorf("fetch sources: %w", err)
	}
	report.Fetched = len(raw)
	if len(raw) == 0 {
		p.logger.Info("no items fetched")
		report.FinishedAt = time.Now()
		return domain.FilterResult{}, report, nil
	}

	items := make([]domain.NewsItem, 0, len(raw))
	for _, r := range raw {
		item, ok := p.normalizer.Normalize(r)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	report.Normalized = len(items)

	relevant := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if p.classifier.Relevant(item.Title + " " + item.Summary) {
			relevant = append(relevant, item)
		}
	}
	report.Relevant = len(relevant)
	p.logger.Info("relevance filter applied", "kept", len(relevant), "total", len(items))
	if len(relevant) == 0 {
		report.FinishedAt = time.Now()
		return domain.FilterResult{}, report, nil
	}

	for i := range relevant {
		relevant[i].Score = p.scorer.Score(relevant[i])
	}

	unique := p.dedup.Dedupe(ctx, relevant)
	report.Unique = len(unique)
	p.logger.Info("duplicates removed", "kept", len(unique), "scored", len(relevant))

	sort.SliceStable(unique, func(i, j int) bool { return unique[i].Score > unique[j].Score })

	selected := make([]domain.NewsItem, 0, len(unique))
	for _, item := range unique {
		if item.Score >= p.acceptThreshold {
			selected = append(selected, item)
		}
	}
	report.Selected = len(selected)
	report.FinishedAt = time.Now()

	if len(selected) == 0 {
		p.logger.Info("no items above the accept threshold", "threshold", p.acceptThreshold)
	} else {
		p.logger.Info("filter pipeline finished",
			"selected", len(selected), "topScore", selected[0].Score)
	}

	return domain.FilterResult{Items: selected}, report, nil
}

// Run executes a full digest cycle: collect, generate an article per
// selected item, persist, record history, and notify. A single item's
// generation failure is counted and skipped, never fatal to the run.
func (p *Pipeline) Run(ctx context.Context) error {
	result, report, err := p.Collect(ctx)
	if err != nil {
		return err
	}

	if result.Empty() {
		p.logger.Info("nothing to generate")
		return nil
	}
	if p.generator == nil {
		p.logger.Warn("article generator is not configured, skipping generation")
		return nil
	}

	items := result.Items
	if len(items) > p.maxArticles {
		items = items[:p.maxArticles]
	}

	for i, item := range items {
		p.logger.Info("generating article",
			"index", i+1, "total", len(items), "title", item.Title, "score", item.Score)

		title := item.Title
		if p.optimizeTitles {
			if optimized, oErr := p.generator.OptimizeTitle(ctx, title); oErr == nil && optimized != "" {
				title = optimized
			}
		}

		article, gErr := p.generator.Generate(ctx, item)
		if gErr != nil {
			p.logger.Error("article generation failed", "title", item.Title, "error", gErr)
			report.Failed++
			continue
		}
		article.Title = title

		if !p.persist(ctx, article) {
			report.Failed++
			continue
		}

		p.markPublished(ctx, item)
		report.Generated++

		if p.notifier != nil {
			if nErr := p.notifier.NotifyArticle(ctx, article); nErr != nil {
				p.logger.Warn("article notification failed", "title", article.Title, "error", nErr)
			}
		}
	}

	report.FinishedAt = time.Now()
	p.logger.Info("digest run finished",
		"generated", report.Generated, "failed", report.Failed, "duration", report.Duration())

	if p.notifier != nil {
		if nErr := p.notifier.NotifySummary(ctx, report); nErr != nil {
			p.logger.Warn("summary notification failed", "error", nErr)
		}
	}
	return nil
}

// persist saves the article to every configured store. An item counts as
// persisted only when no store failed, so a broken store never lets an
// unsaved article into the published history.
func (p *Pipeline) persist(ctx context.Context, article domain.GeneratedArticle) bool {
	ok := true
	for _, store := range p.stores {
		if err := store.SaveArticle(ctx, article); err != nil {
			p.logger.Error("persist article failed", "title", article.Title, "error", err)
			ok = false
		}
	}
	return ok
}

func (p *Pipeline) markPublished(ctx context.Context, item domain.NewsItem) {
	if p.history == nil {
		return
	}

	rec := domain.PublishedRecord{
		Link:      item.Link,
		Title:     item.Title,
		Summary:   item.Summary,
		Source:    item.Source,
		CreatedAt: time.Now(),
	}
	if err := p.history.MarkPublished(ctx, rec); err != nil {
		p.logger.Warn("history update failed", "link", item.Link, "error", err)
	}
}
