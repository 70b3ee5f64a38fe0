package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/fetch"
	"AINewsDigest/internal/filter"
	"AINewsDigest/internal/infrastructure/llm"
	"AINewsDigest/internal/infrastructure/parser"
	"AINewsDigest/internal/infrastructure/scheduler"
	"AINewsDigest/internal/infrastructure/storage"
	"AINewsDigest/internal/infrastructure/telegram"
	"AINewsDigest/internal/logging"
	"AINewsDigest/internal/ports"
	"AINewsDigest/internal/retry"
	"AINewsDigest/internal/usecase"
)

// Application wires configuration to adapters, use cases, and lifecycle
// orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	logger    *slog.Logger
	db        *sql.DB
}

// New builds a runnable application instance. The context bounds startup
// work such as schema migration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := fetch.NewRegistry()
	registry.Register(parser.NewFeedFetcher(
		&http.Client{Timeout: cfg.Fetch.Timeout()},
		baseLogger.With("component", "fetch.feed"),
	))
	registry.Register(parser.NewPageFetcher(
		&http.Client{Timeout: cfg.Fetch.PageTimeout()},
		retry.Config{
			MaxAttempts:     cfg.Fetch.MaxAttempts,
			InitialInterval: cfg.Fetch.RetryDelay(),
		},
		baseLogger.With("component", "fetch.page"),
	))

	probe := parser.NewHealthProbe(
		&http.Client{Timeout: cfg.Fetch.ProbeTimeout()},
		baseLogger.With("component", "health"),
	)
	source := parser.NewRegistrySource(registry, toDomainSources(cfg.Sources), probe, parser.FetchOptions{
		Concurrency:     cfg.Fetch.Concurrency,
		DelayMin:        cfg.Fetch.RequestDelayMin(),
		DelayMax:        cfg.Fetch.RequestDelayMax(),
		MaxSources:      cfg.Fetch.MaxSources,
		SkipHealthCheck: cfg.Fetch.SkipHealthCheck,
	}, baseLogger.With("component", "source"))

	classifier := filter.NewClassifier(cfg.Filter.Keywords)
	normalizer := filter.NewNormalizer(baseLogger.With("component", "normalize"))
	scorer := filter.NewScorer(classifier, cfg.Filter.StrictRecency)
	dedup := filter.NewDeduplicator(cfg.Filter.SimilarityThreshold, baseLogger.With("component", "dedup"))

	app := &Application{cfg: cfg, logger: baseLogger}

	stores := []ports.ArticleStore{storage.NewMarkdownStore(cfg.Storage.ArticlesDir)}
	var history ports.HistoryIndex
	if cfg.Storage.DSN != "" {
		db, err := sql.Open("postgres", cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pg := storage.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare database schema: %w", err)
		}
		app.db = db
		stores = append(stores, pg)
		history = pg
	} else {
		fh, err := storage.NewFileHistory(cfg.Storage.HistoryFile, time.Duration(cfg.Storage.HistoryTTLHours)*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("open history file: %w", err)
		}
		history = fh
	}
	dedup.WithHistory(history, cfg.Filter.HistoryWindow)

	var generator ports.Generator
	if cfg.ChatGPT.APIKey != "" {
		generator = llm.NewGenerator(cfg.ChatGPT, baseLogger.With("component", "llm"))
	} else {
		baseLogger.Warn("chatgpt api key is not set, article generation disabled")
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	app.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:          source,
		Normalizer:      normalizer,
		Classifier:      classifier,
		Scorer:          scorer,
		Dedup:           dedup,
		Generator:       generator,
		Stores:          stores,
		History:         history,
		Notifier:        notifier,
		Logger:          baseLogger.With("component", "pipeline"),
		AcceptThreshold: cfg.Filter.AcceptThreshold,
		MaxArticles:     cfg.Filter.MaxArticles,
		OptimizeTitles:  cfg.ChatGPT.OptimizeTitles,
	})

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewDailyScheduler(
			cfg.Scheduler.RunAt,
			cfg.Scheduler.Location(),
			cfg.Scheduler.CatchUp,
			baseLogger.With("component", "scheduler"),
		)
		app.scheduler = usecase.NewScheduler(driver, app.pipeline, baseLogger.With("component", "scheduler"))
	}

	return app, nil
}

// Run executes a single digest cycle, or blocks serving the daily
// schedule until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler == nil {
		return a.pipeline.Run(ctx)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"runAt", a.cfg.Scheduler.RunAt, "timezone", a.cfg.Scheduler.Timezone)

	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// Close releases long-lived resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func toDomainSources(sources []config.SourceConfig) []domain.Source {
	out := make([]domain.Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, domain.Source{
			Name:        s.Name,
			Strategy:    s.Strategy,
			URL:         s.URL,
			FallbackURL: s.FallbackURL,
			Category:    domain.Category(s.Category),
			Selectors: domain.SelectorSet{
				Article: s.Selectors.Article,
				Title:   s.Selectors.Title,
				Link:    s.Selectors.Link,
				Summary: s.Selectors.Summary,
				Date:    s.Selectors.Date,
			},
		})
	}
	return out
}
