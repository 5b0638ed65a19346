package organizer

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\w+`)

// tokenize lowercases text and splits it into word tokens.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// extractTerms tokenizes text and drops stop words.
func extractTerms(text string, stopWords map[string]bool) []string {
	tokens := tokenize(text)
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stopWords[t] {
			terms = append(terms, t)
		}
	}
	return terms
}

// termSet builds a deduplicated token set from one or more texts.
func termSet(stopWords map[string]bool, texts ...string) map[string]bool {
	set := make(map[string]bool)
	for _, text := range texts {
		for _, term := range extractTerms(text, stopWords) {
			set[term] = true
		}
	}
	return set
}

// jaccardSimilarity is |A ∩ B| / |A ∪ B|, 0 when either set is empty.
func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for term := range a {
		if b[term] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
