package filter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"AINewsDigest/internal/domain"
)

func TestDedupeExactTitleCaseInsensitive(t *testing.T) {
	t.Parallel()

	d := NewDeduplicator(0.7, nil)

	items := []domain.NewsItem{
		{Title: "OpenAI releases new model", Summary: "first report", Link: "https://a.example/1", Score: 70},
		{Title: "OPENAI RELEASES NEW MODEL", Summary: "second report", Link: "https://b.example/1", Score: 90},
	}

	got := d.Dedupe(context.Background(), items)
	if len(got) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(got))
	}
	if got[0].Score != 90 {
		t.Fatalf("expected the higher-scored duplicate to survive, got score %f", got[0].Score)
	}
}

func TestDedupeTwoStageSimilarity(t *testing.T) {
	t.Parallel()

	d := NewDeduplicator(0.7, nil)

	// Titles are near-identical; only the first pair also shares a summary,
	// so only the first pair collapses.
	items := []domain.NewsItem{
		{
			Title:   "OpenAI launches the GPT-5 model today",
			Summary: "The company announced the new flagship model at its developer event this morning",
			Link:    "https://a.example/1",
			Score:   90,
		},
		{
			Title:   "OpenAI launches the GPT-5 model now",
			Summary: "The company announced the new flagship model at its developer event this week",
			Link:    "https://b.example/1",
			Score:   80,
		},
		{
			Title:   "OpenAI launches the GPT-5 model update",
			Summary: "A completely different angle focused on pricing and availability in Europe",
			Link:    "https://c.example/1",
			Score:   70,
		},
	}

	got := d.Dedupe(context.Background(), items)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(got))
	}
	if got[0].Link != "https://a.example/1" || got[1].Link != "https://c.example/1" {
		t.Fatalf("unexpected survivors: %s, %s", got[0].Link, got[1].Link)
	}
}

func TestDedupeOrdersByScoreWithoutMutatingInput(t *testing.T) {
	t.Parallel()

	d := NewDeduplicator(0.7, nil)

	items := []domain.NewsItem{
		{Title: "Anthropic updates Claude", Summary: "safety work", Link: "https://a.example/1", Score: 61},
		{Title: "DeepMind publishes robotics research", Summary: "robot arms", Link: "https://b.example/1", Score: 88},
		{Title: "Gemini adds voice mode", Summary: "speech in, speech out", Link: "https://c.example/1", Score: 75},
	}

	got := d.Dedupe(context.Background(), items)
	if len(got) != 3 {
		t.Fatalf("expected 3 unique items, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Fatalf("expected descending scores, got %f before %f", got[i-1].Score, got[i].Score)
		}
	}

	if items[0].Score != 61 || items[1].Score != 88 || items[2].Score != 75 {
		t.Fatal("input slice order was mutated")
	}

	again := d.Dedupe(context.Background(), got)
	if len(again) != len(got) {
		t.Fatalf("dedupe is not idempotent: %d then %d", len(got), len(again))
	}
}

func TestDedupeEmptyInput(t *testing.T) {
	t.Parallel()

	d := NewDeduplicator(0.7, nil)
	if got := d.Dedupe(context.Background(), nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

type fakeHistory struct {
	links  map[string]bool
	titles map[string]bool
	recent []domain.PublishedRecord
	err    error
}

func (f *fakeHistory) KnownLinks(_ context.Context, links []string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool)
	for _, link := range links {
		if f.links[link] {
			out[link] = true
		}
	}
	return out, nil
}

func (f *fakeHistory) KnownTitles(_ context.Context, titles []string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool)
	for _, title := range titles {
		if f.titles[strings.ToLower(title)] {
			out[strings.ToLower(title)] = true
		}
	}
	return out, nil
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]domain.PublishedRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeHistory) MarkPublished(_ context.Context, _ domain.PublishedRecord) error {
	return f.err
}

func TestDedupeAgainstHistory(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{
		links:  map[string]bool{"https://a.example/1": true},
		titles: map[string]bool{"gemini adds voice mode": true},
		recent: []domain.PublishedRecord{
			{
				Title:   "OpenAI launches the GPT-5 model today",
				Summary: "The company announced the new flagship model at its developer event this morning",
			},
		},
	}

	d := NewDeduplicator(0.7, nil).WithHistory(history, 50)

	items := []domain.NewsItem{
		// Known link.
		{Title: "Anthropic updates Claude", Summary: "safety work", Link: "https://a.example/1", Score: 90},
		// Known title, different link.
		{Title: "Gemini Adds Voice Mode", Summary: "speech", Link: "https://b.example/1", Score: 85},
		// Near-duplicate of a recently published record.
		{
			Title:   "OpenAI launches the GPT-5 model now",
			Summary: "The company announced the new flagship model at its developer event this week",
			Link:    "https://c.example/1",
			Score:   80,
		},
		// Genuinely new.
		{Title: "DeepMind publishes robotics research", Summary: "robot arms", Link: "https://d.example/1", Score: 75},
	}

	got := d.Dedupe(context.Background(), items)
	if len(got) != 1 {
		t.Fatalf("expected 1 item to survive history checks, got %d", len(got))
	}
	if got[0].Link != "https://d.example/1" {
		t.Fatalf("unexpected survivor: %s", got[0].Link)
	}
}

func TestDedupeHistoryFailureDegrades(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{err: errors.New("connection refused")}
	d := NewDeduplicator(0.7, nil).WithHistory(history, 50)

	items := []domain.NewsItem{
		{Title: "Anthropic updates Claude", Summary: "safety work", Link: "https://a.example/1", Score: 90},
		{Title: "DeepMind publishes robotics research", Summary: "robot arms", Link: "https://b.example/1", Score: 75},
	}

	got := d.Dedupe(context.Background(), items)
	if len(got) != 2 {
		t.Fatalf("expected history failure to degrade gracefully, got %d items", len(got))
	}
}
