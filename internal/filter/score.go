package filter

import (
	"math"
	"time"

	"AINewsDigest/internal/domain"
)

const (
	baseScore     = 50
	maxScore      = 100
	agePenaltyCap = 30

	titleKeywordWeight   = 5
	titleKeywordCap      = 15
	summaryKeywordWeight = 2
	summaryKeywordCap    = 10
)

// Scorer assigns the deterministic 0-100 priority used for ranking and
// threshold selection. The score combines source-category trust, publish
// recency, and keyword density in the title and summary.
type Scorer struct {
	classifier    *Classifier
	strictRecency bool
	now           func() time.Time
}

// NewScorer builds a scorer on top of the keyword classifier. With
// strictRecency set, items whose publish date was guessed rather than
// parsed receive no recency adjustment at all.
func NewScorer(classifier *Classifier, strictRecency bool) *Scorer {
	return &Scorer{
		classifier:    classifier,
		strictRecency: strictRecency,
		now:           time.Now,
	}
}

// Score computes the item's priority. Same item, same clock day, same
// score: there is no randomness involved.
func (s *Scorer) Score(item domain.NewsItem) float64 {
	score := float64(baseScore)

	switch item.Category {
	case domain.CategoryAICompany:
		score += 20
	case domain.CategoryTechNews:
		score += 10
	}

	if !(s.strictRecency && item.DateGuessed) {
		days := int(s.now().Sub(item.PublishedAt).Hours() / 24)
		switch {
		case days <= 1:
			score += 20
		case days <= 3:
			score += 15
		case days <= 7:
			score += 10
		default:
			score -= math.Min(float64(days), agePenaltyCap)
		}
	}

	score += math.Min(float64(s.classifier.Count(item.Title))*titleKeywordWeight, titleKeywordCap)
	score += math.Min(float64(s.classifier.Count(item.Summary))*summaryKeywordWeight, summaryKeywordCap)

	return math.Max(0, math.Min(score, maxScore))
}
