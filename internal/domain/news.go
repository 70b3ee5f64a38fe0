package domain

import "time"

// Category classifies the trustworthiness of a source for scoring.
type Category string

const (
	CategoryAICompany Category = "ai_company"
	CategoryTechNews  Category = "tech_news"
	CategoryCommunity Category = "community"
	CategoryResearch  Category = "research"
)

// SelectorSet holds CSS selectors for the generic page extraction strategy.
type SelectorSet struct {
	Article string
	Title   string
	Link    string
	Summary string
	Date    string
}

// Empty reports whether no container selector is configured.
func (s SelectorSet) Empty() bool {
	return s.Article == ""
}

// Source is an immutable descriptor of one configured feed or page origin.
type Source struct {
	Name        string
	Strategy    string
	URL         string
	FallbackURL string
	Category    Category
	Selectors   SelectorSet
}

// RawItem is a fetch-adapter candidate before normalization. The date is
// still the raw upstream string; the summary is already plain text and
// bounded.
type RawItem struct {
	Title         string
	Summary       string
	Link          string
	PublishedText string
	Source        string
	Category      Category
}

// NewsItem is the canonical unit flowing through classification, scoring,
// and deduplication. Title and Link are non-empty for any item that
// survived normalization.
type NewsItem struct {
	Title       string
	Summary     string
	Link        string
	PublishedAt time.Time
	// DateGuessed marks items whose upstream date did not parse and was
	// defaulted to the run day.
	DateGuessed bool
	Source      string
	Category    Category
	Score       float64
}

// PublishedDate renders the calendar date in ISO form.
func (n NewsItem) PublishedDate() string {
	return n.PublishedAt.Format("2006-01-02")
}

// FilterResult is the ordered, thresholded outcome of one pipeline run,
// score-descending and stable on ties.
type FilterResult struct {
	Items []NewsItem
}

// Empty reports the zero-eligible-items terminal state.
func (r FilterResult) Empty() bool {
	return len(r.Items) == 0
}

// PublishedRecord is one entry of the duplicate-history trailing window.
type PublishedRecord struct {
	Link      string    `json:"link"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneratedArticle is the long-form output returned by the generation
// collaborator for one selected item.
type GeneratedArticle struct {
	Item      NewsItem
	Title     string
	Content   string
	Model     string
	CreatedAt time.Time
}

// RunReport carries per-stage counters for one pipeline run.
type RunReport struct {
	Fetched    int
	Normalized int
	Relevant   int
	Unique     int
	Selected   int
	Generated  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
