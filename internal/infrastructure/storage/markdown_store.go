package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

const slugRuneLimit = 50

// MarkdownStore writes each generated article to its own timestamped
// markdown file under the configured directory.
type MarkdownStore struct {
	dir string
}

var _ ports.ArticleStore = (*MarkdownStore)(nil)

// NewMarkdownStore configures the output directory.
func NewMarkdownStore(dir string) *MarkdownStore {
	if dir == "" {
		dir = "articles"
	}
	return &MarkdownStore{dir: dir}
}

// SaveArticle renders the article with a small metadata header. The file
// name combines the creation timestamp with a sanitized title slug.
func (m *MarkdownStore) SaveArticle(_ context.Context, article domain.GeneratedArticle) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create articles dir: %w", err)
	}

	createdAt := article.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	name := fmt.Sprintf("%s_%s.md", createdAt.Format("20060102_150405"), titleSlug(article.Title))
	path := filepath.Join(m.dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", article.Title)
	fmt.Fprintf(&b, "- Date: %s\n", article.Item.PublishedDate())
	fmt.Fprintf(&b, "- Source: [%s](%s)\n", article.Item.Source, article.Item.Link)
	if article.Model != "" {
		fmt.Fprintf(&b, "- Model: %s\n", article.Model)
	}
	fmt.Fprintf(&b, "\n%s\n", article.Content)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write article file: %w", err)
	}
	return nil
}

// titleSlug keeps letters, digits, dashes, and underscores; spaces become
// underscores and the result is capped to keep file names manageable.
func titleSlug(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	slug := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	runes := []rune(slug)
	if len(runes) > slugRuneLimit {
		runes = runes[:slugRuneLimit]
	}
	if len(runes) == 0 {
		return "article"
	}
	return string(runes)
}
