package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/retry"
)

func testNotifier(apiBase string) *Notifier {
	n := NewNotifier("test-token", "42")
	n.apiBase = apiBase
	n.retryCfg = retry.Config{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
	return n
}

func TestNotifyArticle(t *testing.T) {
	t.Parallel()

	var path, text, mode, chatID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		text = r.PostForm.Get("text")
		mode = r.PostForm.Get("parse_mode")
		chatID = r.PostForm.Get("chat_id")
	}))
	defer server.Close()

	n := testNotifier(server.URL)

	article := domain.GeneratedArticle{
		Item: domain.NewsItem{
			Title:  "OpenAI releases new model",
			Link:   "https://example.org/news/1",
			Source: "Feed A",
		},
		Title:   "OpenAI releases new model",
		Content: "A <short> preview body.",
		Model:   "gpt-4o",
	}

	if err := n.NotifyArticle(context.Background(), article); err != nil {
		t.Fatalf("NotifyArticle error: %v", err)
	}

	if path != "/bottest-token/sendMessage" {
		t.Fatalf("unexpected path: %s", path)
	}
	if chatID != "42" {
		t.Fatalf("unexpected chat id: %s", chatID)
	}
	if mode != "HTML" {
		t.Fatalf("unexpected parse mode: %s", mode)
	}
	for _, want := range []string{
		"OpenAI releases new model",
		"Feed A",
		"https://example.org/news/1",
		"gpt-4o",
		"A &lt;short&gt; preview body.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("message missing %q:\n%s", want, text)
		}
	}
}

func TestNotifyArticleTruncatesPreview(t *testing.T) {
	t.Parallel()

	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		text = r.PostForm.Get("text")
	}))
	defer server.Close()

	n := testNotifier(server.URL)

	article := domain.GeneratedArticle{
		Item:    domain.NewsItem{Title: "t", Link: "https://a.example/1"},
		Title:   "t",
		Content: strings.Repeat("x", 500),
	}

	if err := n.NotifyArticle(context.Background(), article); err != nil {
		t.Fatalf("NotifyArticle error: %v", err)
	}
	if !strings.Contains(text, strings.Repeat("x", 300)+"...") {
		t.Fatal("expected preview truncated at 300 runes")
	}
	if strings.Contains(text, strings.Repeat("x", 301)) {
		t.Fatal("preview longer than the cap")
	}
}

func TestNotifySummary(t *testing.T) {
	t.Parallel()

	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		text = r.PostForm.Get("text")
	}))
	defer server.Close()

	n := testNotifier(server.URL)

	started := time.Now()
	report := domain.RunReport{
		Fetched:    40,
		Relevant:   12,
		Selected:   5,
		Generated:  4,
		Failed:     1,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
	}

	if err := n.NotifySummary(context.Background(), report); err != nil {
		t.Fatalf("NotifySummary error: %v", err)
	}

	for _, want := range []string{"Fetched: 40", "Relevant: 12", "Selected: 5", "Generated: 4", "Failed: 1", "1m30s"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
	}))
	defer server.Close()

	n := testNotifier(server.URL)

	if err := n.send(context.Background(), "hello"); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestSendClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	n := testNotifier(server.URL)

	if err := n.send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestSendMisconfigured(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "")
	if err := n.send(context.Background(), "hello"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
