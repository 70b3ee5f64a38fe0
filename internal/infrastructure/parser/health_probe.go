package parser

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AINewsDigest/internal/domain"
)

// HealthProbe filters out sources that fail a fast reachability check
// before the full fetch pass. Passing the probe is no guarantee; the
// fetchers still tolerate individual failures on their own.
type HealthProbe struct {
	client *http.Client
	logger *slog.Logger
}

// NewHealthProbe wires a short-timeout HTTP client.
func NewHealthProbe(client *http.Client, logger *slog.Logger) *HealthProbe {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthProbe{client: client, logger: logger}
}

// Check returns the sources that answered without a transport error or
// an error-range status.
func (h *HealthProbe) Check(ctx context.Context, sources []domain.Source) []domain.Source {
	healthy := make([]domain.Source, 0, len(sources))
	var unhealthy []string

	for _, src := range sources {
		if err := h.probe(ctx, src.URL); err != nil {
			h.logger.Warn("health check failed", "source", src.Name, "error", err)
			unhealthy = append(unhealthy, src.Name)
			continue
		}
		healthy = append(healthy, src)
	}

	if len(unhealthy) > 0 {
		h.logger.Warn("excluding unhealthy sources",
			"count", len(unhealthy), "sources", strings.Join(unhealthy, ", "))
	}

	return healthy
}

func (h *HealthProbe) probe(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
