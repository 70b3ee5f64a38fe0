package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func listingSelectors() domain.SelectorSet {
	return domain.SelectorSet{
		Article: "article.post",
		Title:   "h2.title",
		Link:    "a.more",
		Summary: "p.excerpt",
		Date:    "time.when",
	}
}

func listingHTML(entries int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < entries; i++ {
		fmt.Fprintf(&b, `<article class="post">
			<h2 class="title">Story %d</h2>
			<a class="more" href="/posts/%d">read</a>
			<p class="excerpt">Summary %d</p>
			<time class="when">August 20, 2025</time>
		</article>`, i, i, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestPageFetcherExtractsItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML(3)))
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	src := domain.Source{
		Name:      "Listing",
		URL:       server.URL,
		Category:  domain.CategoryTechNews,
		Selectors: listingSelectors(),
	}

	items, err := p.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Story 0" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Link != server.URL+"/posts/0" {
		t.Fatalf("relative link not resolved: %s", first.Link)
	}
	if first.Summary != "Summary 0" {
		t.Fatalf("unexpected summary: %q", first.Summary)
	}
	if first.PublishedText != "August 20, 2025" {
		t.Fatalf("unexpected date text: %q", first.PublishedText)
	}
	if first.Source != "Listing" || first.Category != domain.CategoryTechNews {
		t.Fatalf("source metadata not attached: %+v", first)
	}
}

func TestPageFetcherCapsItemCount(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML(14)))
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	items, err := p.Fetch(context.Background(), domain.Source{
		Name:      "Listing",
		URL:       server.URL,
		Selectors: listingSelectors(),
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != maxItemsPerPage {
		t.Fatalf("expected %d items, got %d", maxItemsPerPage, len(items))
	}
}

func TestPageFetcherKeepsAbsoluteLinks(t *testing.T) {
	t.Parallel()

	html := `<article class="post">
		<h2 class="title">External story</h2>
		<a class="more" href="https://elsewhere.example/post/9">read</a>
	</article>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	items, err := p.Fetch(context.Background(), domain.Source{
		Name:      "Listing",
		URL:       server.URL,
		Selectors: listingSelectors(),
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Link != "https://elsewhere.example/post/9" {
		t.Fatalf("absolute link was rewritten: %s", items[0].Link)
	}
}

func TestPageFetcherSkipsEntriesWithoutTitleOrLink(t *testing.T) {
	t.Parallel()

	html := `
	<article class="post"><h2 class="title">Complete</h2><a class="more" href="/a">x</a></article>
	<article class="post"><h2 class="title">No link</h2></article>
	<article class="post"><a class="more" href="/b">no title</a></article>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	items, err := p.Fetch(context.Background(), domain.Source{
		Name:      "Listing",
		URL:       server.URL,
		Selectors: listingSelectors(),
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Complete" {
		t.Fatalf("expected only the complete entry, got %+v", items)
	}
}

func TestPageFetcherWithoutSelectorsSkipsRequest(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	items, err := p.Fetch(context.Background(), domain.Source{Name: "Bare", URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if items != nil {
		t.Fatalf("expected no items, got %v", items)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("expected no HTTP request for a source without selectors")
	}
}

func TestPageFetcherStatusErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	_, err := p.Fetch(context.Background(), domain.Source{
		Name:      "Listing",
		URL:       server.URL,
		Selectors: listingSelectors(),
	})
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
	if !IsStatusError(err) {
		t.Fatalf("expected status error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt for a status failure, got %d", got)
	}
}

func TestPageFetcherRetriesConnectionFailures(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			// Drop the connection mid-response to simulate a flaky host.
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				_ = conn.Close()
				return
			}
		}
		_, _ = w.Write([]byte(listingHTML(1)))
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	items, err := p.Fetch(context.Background(), domain.Source{
		Name:      "Listing",
		URL:       server.URL,
		Selectors: listingSelectors(),
	})
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item after recovery, got %d", len(items))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestPageFetcherEmptyBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("   \n"))
	}))
	defer server.Close()

	p := NewPageFetcher(server.Client(), fastRetry(), nil)
	items, err := p.Fetch(context.Background(), domain.Source{
		Name:      "Listing",
		URL:       server.URL,
		Selectors: listingSelectors(),
	})
	if err != nil {
		t.Fatalf("expected empty body to be tolerated, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	cases := []struct {
		origin string
		link   string
		want   string
	}{
		{"https://example.org", "/posts/1", "https://example.org/posts/1"},
		{"https://example.org", "posts/1", "https://example.org/posts/1"},
		{"https://example.org", "https://other.example/x", "https://other.example/x"},
		{"", "/posts/1", "/posts/1"},
	}

	for _, tc := range cases {
		if got := resolveLink(tc.origin, tc.link); got != tc.want {
			t.Fatalf("resolveLink(%q, %q) = %q, want %q", tc.origin, tc.link, got, tc.want)
		}
	}
}
