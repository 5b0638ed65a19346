package organizer

import "github.com/rohmanhakim/docs-crawler/pkg/hashutil"

// OrganizerConfig tunes categorization, similarity linking, and document
// identity hashing.
type OrganizerConfig struct {
	// CategoryRules maps a category name to the keywords/patterns that
	// trigger it. The first matching category (map iteration is randomized
	// in Go, so rules are evaluated in CategoryOrder when set) wins; no
	// match falls back to "uncategorized".
	CategoryRules map[string][]string
	// CategoryOrder fixes rule evaluation order, since map iteration order
	// is not deterministic and category assignment must be.
	CategoryOrder []string
	MinSimilarityScore float64
	StopWords           map[string]bool
	HashAlgo            hashutil.HashAlgo
}

func DefaultOrganizerConfig() OrganizerConfig {
	return OrganizerConfig{
		CategoryRules:       map[string][]string{},
		CategoryOrder:       nil,
		MinSimilarityScore:  0.3,
		StopWords:           defaultStopWords(),
		HashAlgo:            hashutil.HashAlgoBLAKE3,
	}
}

func defaultStopWords() map[string]bool {
	words := []string{
		"a", "an", "the", "and", "or", "but", "is", "are", "was", "were",
		"be", "been", "being", "in", "on", "at", "to", "for", "with",
		"by", "about", "against", "between", "into", "through", "during",
		"before", "after", "above", "below", "from", "up", "down", "of",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

const uncategorized = "uncategorized"
