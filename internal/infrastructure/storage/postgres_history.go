package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// PostgresStore keeps the published-article history and the generated
// articles in Postgres. It backs both the duplicate-history index and
// the article store.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.HistoryIndex = (*PostgresStore)(nil)
	_ ports.ArticleStore = (*PostgresStore)(nil)
)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the backing tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS published_articles (
			link TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT,
			source TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			source_url TEXT,
			published_date TEXT,
			model_used TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// KnownLinks returns the subset of links that were already published.
func (s *PostgresStore) KnownLinks(ctx context.Context, links []string) (map[string]bool, error) {
	if s.db == nil || len(links) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := s.builder.
		Select("link").
		From("published_articles").
		Where("link = ANY(?)", pq.StringArray(links)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build link query: %w", err)
	}

	return s.queryKeySet(ctx, query, args)
}

// KnownTitles returns the already published titles, keyed lowercased.
func (s *PostgresStore) KnownTitles(ctx context.Context, titles []string) (map[string]bool, error) {
	if s.db == nil || len(titles) == 0 {
		return map[string]bool{}, nil
	}

	lowered := make([]string, len(titles))
	for i, title := range titles {
		lowered[i] = strings.ToLower(title)
	}

	query, args, err := s.builder.
		Select("lower(title)").
		From("published_articles").
		Where("lower(title) = ANY(?)", pq.StringArray(lowered)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build title query: %w", err)
	}

	return s.queryKeySet(ctx, query, args)
}

func (s *PostgresStore) queryKeySet(ctx context.Context, query string, args []interface{}) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan key: %w", err)
		}
		result[key] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Recent returns up to limit published records, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]domain.PublishedRecord, error) {
	if s.db == nil || limit <= 0 {
		return nil, nil
	}

	query, args, err := s.builder.
		Select("link", "title", "COALESCE(summary, '')", "COALESCE(source, '')", "created_at").
		From("published_articles").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}

	var records []domain.PublishedRecord
	for rows.Next() {
		var rec domain.PublishedRecord
		if err := rows.Scan(&rec.Link, &rec.Title, &rec.Summary, &rec.Source, &rec.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

// MarkPublished upserts one history record keyed by link.
func (s *PostgresStore) MarkPublished(ctx context.Context, rec domain.PublishedRecord) error {
	if s.db == nil {
		return nil
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query, args, err := s.builder.
		Insert("published_articles").
		Columns("link", "title", "summary", "source", "created_at").
		Values(rec.Link, rec.Title, rec.Summary, rec.Source, createdAt).
		Suffix(`ON CONFLICT (link) DO UPDATE
			SET title = EXCLUDED.title,
			    summary = EXCLUDED.summary,
			    source = EXCLUDED.source,
			    created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert published: %w", err)
	}
	return nil
}

// SaveArticle inserts one generated article row.
func (s *PostgresStore) SaveArticle(ctx context.Context, article domain.GeneratedArticle) error {
	if s.db == nil {
		return nil
	}

	query, args, err := s.builder.
		Insert("articles").
		Columns("title", "content", "source_url", "published_date", "model_used").
		Values(article.Title, article.Content, article.Item.Link, article.Item.PublishedDate(), article.Model).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}
