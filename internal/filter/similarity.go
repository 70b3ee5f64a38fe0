package filter

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenize lowercases text and splits it into letter/number runs, dropping
// single-rune tokens.
func tokenize(text string) []string {
	parts := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if utf8.RuneCountInString(part) < 2 {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return counts
}

// Similarity computes cosine similarity over TF-IDF vectors built from
// exactly the two texts being compared. Empty or degenerate input yields 0,
// never an error.
func Similarity(a, b string) float64 {
	countsA := termCounts(tokenize(a))
	countsB := termCounts(tokenize(b))
	if len(countsA) == 0 || len(countsB) == 0 {
		return 0
	}

	weightsA := tfidfWeights(countsA, countsB)
	weightsB := tfidfWeights(countsB, countsA)
	if weightsA == nil || weightsB == nil {
		return 0
	}

	var dot float64
	for term, wa := range weightsA {
		if wb, ok := weightsB[term]; ok {
			dot += wa * wb
		}
	}
	return dot
}

// tfidfWeights builds the L2-normalized TF-IDF vector for one document of
// the two-document corpus; other supplies the document frequencies.
// IDF is smoothed: ln((1+n)/(1+df)) + 1 with n = 2.
func tfidfWeights(own, other map[string]int) map[string]float64 {
	weights := make(map[string]float64, len(own))

	var norm float64
	for term, count := range own {
		df := 1
		if other[term] > 0 {
			df = 2
		}
		w := float64(count) * (math.Log(3.0/float64(1+df)) + 1)
		weights[term] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}

	norm = math.Sqrt(norm)
	for term := range weights {
		weights[term] /= norm
	}
	return weights
}
