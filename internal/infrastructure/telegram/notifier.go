package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
	"AINewsDigest/internal/retry"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	previewRunes   = 300
)

// Notifier sends per-article and run-summary messages to a Telegram chat
// via the bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
	retryCfg retry.Config
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 10 * time.Second},
		retryCfg: retry.Config{
			MaxAttempts:     3,
			InitialInterval: time.Second,
			MaxInterval:     8 * time.Second,
		},
	}
}

// NotifyArticle posts one message per generated article with a short
// content preview.
func (n *Notifier) NotifyArticle(ctx context.Context, article domain.GeneratedArticle) error {
	var b strings.Builder
	b.WriteString("<b>New article generated</b>\n\n")
	fmt.Fprintf(&b, "<b>Title:</b> %s\n", html.EscapeString(article.Title))
	fmt.Fprintf(&b, "<b>Source:</b> %s\n", html.EscapeString(article.Item.Source))
	fmt.Fprintf(&b, "<b>Link:</b> %s\n", article.Item.Link)
	if article.Model != "" {
		fmt.Fprintf(&b, "<b>Model:</b> %s\n", article.Model)
	}
	if preview := truncateRunes(article.Content, previewRunes); preview != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>\n", html.EscapeString(preview))
	}

	return n.send(ctx, b.String())
}

// NotifySummary posts the per-run counters once a pipeline run finishes.
func (n *Notifier) NotifySummary(ctx context.Context, report domain.RunReport) error {
	var b strings.Builder
	b.WriteString("<b>News digest run finished</b>\n\n")
	fmt.Fprintf(&b, "Fetched: %d\n", report.Fetched)
	fmt.Fprintf(&b, "Relevant: %d\n", report.Relevant)
	fmt.Fprintf(&b, "Selected: %d\n", report.Selected)
	fmt.Fprintf(&b, "Generated: %d\n", report.Generated)
	if report.Failed > 0 {
		fmt.Fprintf(&b, "Failed: %d\n", report.Failed)
	}
	fmt.Fprintf(&b, "Duration: %s\n", report.Duration().Round(time.Second))

	return n.send(ctx, b.String())
}

// send posts one sendMessage call, retrying rate limits and server-side
// failures.
func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	encoded := form.Encode()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return &sendError{status: resp.StatusCode}
		}
		return nil
	}

	return retry.Do(ctx, n.retryCfg, "telegram send", op, retryableSendError)
}

type sendError struct {
	status int
}

func (e *sendError) Error() string {
	return fmt.Sprintf("telegram error: %d %s", e.status, http.StatusText(e.status))
}

func retryableSendError(err error) bool {
	var sendErr *sendError
	if errors.As(err, &sendErr) {
		return sendErr.status == http.StatusTooManyRequests ||
			sendErr.status >= http.StatusInternalServerError
	}
	return true
}

func truncateRunes(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
