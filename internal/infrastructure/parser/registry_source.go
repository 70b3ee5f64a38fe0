package parser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/fetch"
	"AINewsDigest/internal/ports"
)

// FetchOptions bounds how the source catalog is walked.
type FetchOptions struct {
	// Concurrency over 1 enables the bounded worker pool; 1 or less
	// walks the sources sequentially with a polite randomized delay.
	Concurrency int
	DelayMin    time.Duration
	DelayMax    time.Duration
	// MaxSources caps how many sources one run touches, 0 means all.
	MaxSources      int
	SkipHealthCheck bool
}

// RegistrySource aggregates raw items across every configured source,
// resolving each source's fetch strategy by name from the registry. One
// failing source never blocks the rest of the catalog.
type RegistrySource struct {
	registry *fetch.Registry
	sources  []domain.Source
	probe    *HealthProbe
	opts     FetchOptions
	logger   *slog.Logger
}

var _ ports.NewsSource = (*RegistrySource)(nil)

// NewRegistrySource wires the catalog walker. The probe may be nil to
// disable the health pre-pass entirely.
func NewRegistrySource(registry *fetch.Registry, sources []domain.Source, probe *HealthProbe, opts FetchOptions, logger *slog.Logger) *RegistrySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrySource{
		registry: registry,
		sources:  sources,
		probe:    probe,
		opts:     opts,
		logger:   logger,
	}
}

// FetchAll walks the healthy sources and merges their items in catalog
// order. Per-source failures are logged and tolerated; an empty catalog
// yields an empty result.
func (s *RegistrySource) FetchAll(ctx context.Context) ([]domain.RawItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("fetch registry is not configured")
	}

	sources := s.sources
	if s.probe != nil && !s.opts.SkipHealthCheck {
		sources = s.probe.Check(ctx, sources)
	}
	if s.opts.MaxSources > 0 && len(sources) > s.opts.MaxSources {
		sources = sources[:s.opts.MaxSources]
	}
	if len(sources) == 0 {
		s.logger.Warn("no healthy sources to fetch")
		return nil, nil
	}

	var results [][]domain.RawItem
	if s.opts.Concurrency > 1 {
		results = s.fetchConcurrent(ctx, sources)
	} else {
		results = s.fetchSequential(ctx, sources)
	}

	var merged []domain.RawItem
	for _, items := range results {
		merged = append(merged, items...)
	}

	s.logger.Info("fetch pass finished", "sources", len(sources), "items", len(merged))
	return merged, nil
}

func (s *RegistrySource) fetchConcurrent(ctx context.Context, sources []domain.Source) [][]domain.RawItem {
	results := make([][]domain.RawItem, len(sources))
	sem := make(chan struct{}, s.opts.Concurrency)
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(i int, src domain.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.fetchOne(ctx, src)
		}(i, src)
	}

	wg.Wait()
	return results
}

func (s *RegistrySource) fetchSequential(ctx context.Context, sources []domain.Source) [][]domain.RawItem {
	results := make([][]domain.RawItem, len(sources))

	for i, src := range sources {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(s.politeDelay()):
			}
		}
		results[i] = s.fetchOne(ctx, src)
	}

	return results
}

// politeDelay picks a randomized pause within the configured bounds so
// sequential fetches do not hammer upstream rate limits in lockstep.
func (s *RegistrySource) politeDelay() time.Duration {
	lo, hi := s.opts.DelayMin, s.opts.DelayMax
	if lo <= 0 {
		lo = time.Second
	}
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

func (s *RegistrySource) fetchOne(ctx context.Context, src domain.Source) []domain.RawItem {
	fetcher, err := s.registry.Resolve(src.Strategy)
	if err != nil {
		s.logger.Error("cannot resolve fetch strategy",
			"source", src.Name, "strategy", src.Strategy, "error", err)
		return nil
	}

	items, err := fetcher.Fetch(ctx, src)
	if err != nil {
		s.logger.Error("source fetch failed", "source", src.Name, "error", err)
		return nil
	}

	s.logger.Debug("source fetched", "source", src.Name, "items", len(items))
	return items
}
