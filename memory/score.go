package memory

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Scorer computes a text-similarity score between a query and a candidate.
// Higher is more relevant; zero means no overlap. Scores above 1.0 are
// legal (the heuristic's substring bonus is additive and uncapped).
//
// The strategy is picked once at construction time: TFIDFScorer when a rich
// text-similarity backend is wanted, OverlapScorer as the lightweight
// fallback.
type Scorer interface {
	Score(query, content string) float64
}

// NewScorer returns the scoring strategy for the unified retrieval path.
func NewScorer(rich bool) Scorer {
	if rich {
		return TFIDFScorer{}
	}
	return OverlapScorer{}
}

var asciiWordRe = regexp.MustCompile(`[a-z0-9_]+`)

// OverlapScorer is the lightweight keyword heuristic: word-set intersection
// over the query's terms, plus a flat 0.1 bonus per query word appearing as
// a substring of the candidate. Non-whitespace-delimited scripts contribute
// contiguous character bigrams and trigrams as terms.
type OverlapScorer struct{}

func (OverlapScorer) Score(query, content string) float64 {
	queryTerms := textTerms(query)
	if len(queryTerms) == 0 {
		return 0
	}
	contentTerms := textTerms(content)

	matches := 0
	for term := range queryTerms {
		if contentTerms[term] {
			matches++
		}
	}

	score := 0.0
	if matches > 0 {
		score = float64(matches) / float64(len(queryTerms))
	}

	// Substring bonus, additive and deliberately uncapped.
	contentLower := strings.ToLower(content)
	bonus := 0.0
	for _, word := range asciiWordRe.FindAllString(strings.ToLower(query), -1) {
		if strings.Contains(contentLower, word) {
			bonus += 0.1
		}
	}

	if score == 0 && bonus == 0 {
		return 0
	}
	return score + bonus
}

// TFIDFScorer is the rich text-similarity strategy: cosine similarity of
// tf-idf vectors built over unigrams and bigrams of both texts, with a flat
// bonus when the whole query occurs verbatim in the candidate.
type TFIDFScorer struct{}

func (TFIDFScorer) Score(query, content string) float64 {
	queryGrams := ngramCounts(query)
	contentGrams := ngramCounts(content)
	if len(queryGrams) == 0 || len(contentGrams) == 0 {
		return 0
	}

	// Smoothed idf over the two-document corpus.
	idf := func(term string) float64 {
		df := 0
		if queryGrams[term] > 0 {
			df++
		}
		if contentGrams[term] > 0 {
			df++
		}
		return math.Log(3.0/float64(df+1)) + 1
	}

	var dot, qNorm, cNorm float64
	weights := make(map[string]float64, len(queryGrams))
	for term, tf := range queryGrams {
		w := float64(tf) * idf(term)
		weights[term] = w
		qNorm += w * w
	}
	for term, tf := range contentGrams {
		w := float64(tf) * idf(term)
		cNorm += w * w
		if qw, ok := weights[term]; ok {
			dot += qw * w
		}
	}
	if qNorm == 0 || cNorm == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(qNorm) * math.Sqrt(cNorm))
	if sim < 0 {
		sim = 0
	}

	if q := strings.TrimSpace(strings.ToLower(query)); q != "" &&
		strings.Contains(strings.ToLower(content), q) {
		sim += 0.3
	}
	return sim
}

// textTerms tokenizes into lower-cased ASCII words plus CJK character
// bigrams and trigrams.
func textTerms(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range asciiWordRe.FindAllString(strings.ToLower(text), -1) {
		terms[w] = true
	}
	for _, g := range cjkGrams(text) {
		terms[g] = true
	}
	return terms
}

// cjkGrams extracts contiguous 2- and 3-character sequences of Han runes.
func cjkGrams(text string) []string {
	var chars []rune
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			chars = append(chars, r)
		}
	}
	if len(chars) < 2 {
		return nil
	}
	var grams []string
	for i := 0; i+1 < len(chars); i++ {
		grams = append(grams, string(chars[i:i+2]))
		if i+2 < len(chars) {
			grams = append(grams, string(chars[i:i+3]))
		}
	}
	return grams
}

// ngramCounts builds unigram and bigram term frequencies for tf-idf.
func ngramCounts(text string) map[string]int {
	var tokens []string
	tokens = append(tokens, asciiWordRe.FindAllString(strings.ToLower(text), -1)...)
	tokens = append(tokens, cjkGrams(text)...)

	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}
	return counts
}

// Cosine computes cosine similarity between two float32 vectors. Mismatched
// or zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
