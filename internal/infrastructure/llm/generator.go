package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
	"AINewsDigest/internal/retry"
)

const articlePrompt = `Write an engaging news article based on this item.

Title: %s
Summary: %s
Link: %s
Published: %s

Requirements:
- an attention-grabbing headline (reworking the original title is fine)
- a short introduction that hooks the reader
- a body that explains the technology and its impact on the AI industry
- a closing paragraph ending with one or two questions for the reader
- 800-1200 words, short paragraphs, accessible language

Output only the article text.`

// Generator produces long-form articles through an OpenAI-compatible
// chat-completions API.
type Generator struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	temperature  float64
	maxTokens    int
	httpClient   *http.Client
	retryCfg     retry.Config
	logger       *slog.Logger
}

var _ ports.Generator = (*Generator)(nil)

// NewGenerator builds a client from configuration.
func NewGenerator(cfg config.ChatGPTConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: safePrompt(cfg.SystemPrompt),
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retryCfg: retry.Config{
			MaxAttempts:     3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a full article on the given item. Rate
// limits and server-side failures are retried with backoff; an empty
// completion is an error so the caller never stores a blank article.
func (g *Generator) Generate(ctx context.Context, item domain.NewsItem) (domain.GeneratedArticle, error) {
	if g == nil {
		return domain.GeneratedArticle{}, fmt.Errorf("generator is nil")
	}
	if g.apiKey == "" || g.endpoint == "" || g.model == "" {
		return domain.GeneratedArticle{}, fmt.Errorf("generator misconfigured")
	}

	prompt := fmt.Sprintf(articlePrompt, item.Title, item.Summary, item.Link, item.PublishedDate())

	content, err := g.complete(ctx, "generate article", prompt, g.maxTokens)
	if err != nil {
		return domain.GeneratedArticle{}, err
	}
	if content == "" {
		return domain.GeneratedArticle{}, fmt.Errorf("model returned an empty article")
	}

	return domain.GeneratedArticle{
		Item:      item,
		Title:     item.Title,
		Content:   content,
		Model:     g.model,
		CreatedAt: time.Now(),
	}, nil
}

// OptimizeTitle asks the model for a catchier headline. On any failure
// the original title is returned so the caller can proceed.
func (g *Generator) OptimizeTitle(ctx context.Context, title string) (string, error) {
	if g == nil || g.apiKey == "" || g.endpoint == "" || g.model == "" {
		return title, fmt.Errorf("generator misconfigured")
	}

	prompt := fmt.Sprintf(
		"Rework this AI news headline so it draws more readers without overselling it. Keep it short. Output only the headline.\n\nOriginal: %s",
		title,
	)

	optimized, err := g.complete(ctx, "optimize title", prompt, 60)
	if err != nil {
		g.logger.Warn("title optimization failed, keeping original", "error", err)
		return title, err
	}

	optimized = strings.Trim(optimized, `"'`)
	if optimized == "" {
		return title, nil
	}
	return optimized, nil
}

func (g *Generator) complete(ctx context.Context, name, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: g.systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	var content string
	op := func() error {
		var opErr error
		content, opErr = g.post(ctx, body)
		return opErr
	}

	if err := retry.Do(ctx, g.retryCfg, name, op, retryableAPIError); err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (g *Generator) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &apiError{
			status: resp.StatusCode,
			body:   strings.TrimSpace(string(payload)),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// apiError separates rate-limit and server-side failures, which are
// worth retrying, from client-side ones, which are not.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("chatgpt error %d: %s", e.status, e.body)
	}
	return fmt.Sprintf("chatgpt error %d", e.status)
}

func retryableAPIError(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status == http.StatusTooManyRequests ||
			apiErr.status >= http.StatusInternalServerError
	}
	// Transport errors are transient by assumption.
	return true
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a professional technology journalist covering artificial intelligence."
	}
	return prompt
}
