package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// FileHistory is a zero-infrastructure duplicate-history index backed by
// a single JSON file. It suits single-process deployments that run
// without Postgres; records older than the TTL are dropped on load.
type FileHistory struct {
	path string
	ttl  time.Duration

	mu      sync.RWMutex
	records []domain.PublishedRecord
}

var _ ports.HistoryIndex = (*FileHistory)(nil)

// NewFileHistory loads the existing history file when present. A TTL of
// zero keeps records forever.
func NewFileHistory(path string, ttl time.Duration) (*FileHistory, error) {
	h := &FileHistory{path: path, ttl: ttl}
	if err := h.load(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *FileHistory) load() error {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []domain.PublishedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse history file: %w", err)
	}

	cutoff := time.Now().Add(-h.ttl)
	for _, rec := range records {
		if h.ttl > 0 && !rec.CreatedAt.After(cutoff) {
			continue
		}
		h.records = append(h.records, rec)
	}
	return nil
}

// KnownLinks reports which of the given links are on record.
func (h *FileHistory) KnownLinks(_ context.Context, links []string) (map[string]bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	onRecord := make(map[string]bool, len(h.records))
	for _, rec := range h.records {
		onRecord[rec.Link] = true
	}

	result := make(map[string]bool)
	for _, link := range links {
		if onRecord[link] {
			result[link] = true
		}
	}
	return result, nil
}

// KnownTitles reports which titles are on record, keyed lowercased.
func (h *FileHistory) KnownTitles(_ context.Context, titles []string) (map[string]bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	onRecord := make(map[string]bool, len(h.records))
	for _, rec := range h.records {
		onRecord[strings.ToLower(rec.Title)] = true
	}

	result := make(map[string]bool)
	for _, title := range titles {
		if onRecord[strings.ToLower(title)] {
			result[strings.ToLower(title)] = true
		}
	}
	return result, nil
}

// Recent returns up to limit records, newest first.
func (h *FileHistory) Recent(_ context.Context, limit int) ([]domain.PublishedRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || len(h.records) == 0 {
		return nil, nil
	}

	// Records are appended in publish order, so walk from the tail.
	out := make([]domain.PublishedRecord, 0, limit)
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}

// MarkPublished appends one record and rewrites the file.
func (h *FileHistory) MarkPublished(_ context.Context, rec domain.PublishedRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	for i, existing := range h.records {
		if existing.Link == rec.Link {
			h.records[i] = rec
			return h.save()
		}
	}

	h.records = append(h.records, rec)
	return h.save()
}

func (h *FileHistory) save() error {
	if dir := filepath.Dir(h.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(h.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}
