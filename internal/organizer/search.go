package organizer

import (
	"fmt"
	"sort"
	"strings"
)

/*
Responsibilities
- Tokenize a query the same way documents are indexed
- Score every candidate document by summing title/text/index matches,
  recording a human-readable reason per contributing match
- When the query itself names a category-rule keyword, add documents from
  that category with no direct token match at a lower synthetic score, so
  a category-level query ("tutorials") still surfaces its members
*/

// Search scores every document against query, optionally restricted to
// category, and returns matches sorted by descending score.
func (o *Organizer) Search(query string, category string) []SearchMatch {
	o.mu.RLock()
	defer o.mu.RUnlock()

	queryTerms := extractTerms(query, o.config.StopWords)
	scores := map[string]*SearchMatch{}

	ensure := func(id string) *SearchMatch {
		m, ok := scores[id]
		if !ok {
			m = &SearchMatch{DocumentID: id}
			scores[id] = m
		}
		return m
	}

	for id, doc := range o.documents {
		titleTokens := tokenize(strings.ToLower(doc.Title))
		for _, term := range queryTerms {
			if containsToken(titleTokens, term) {
				m := ensure(id)
				m.Score++
				m.Reasons = append(m.Reasons, fmt.Sprintf("title match: %s", term))
			}
		}

		if latest, ok := doc.latestVersion(); ok {
			textTokens := tokenize(strings.ToLower(latest.Text))
			for _, term := range queryTerms {
				if containsToken(textTokens, term) {
					m := ensure(id)
					m.Score++
					m.Reasons = append(m.Reasons, fmt.Sprintf("text match: %s", term))
				}
			}
		}

		for _, term := range queryTerms {
			if bucket, ok := o.index[term]; ok && bucket[id] {
				m := ensure(id)
				m.Score++
				m.Reasons = append(m.Reasons, fmt.Sprintf("index match: %s", term))
			}
		}

		for _, tag := range doc.Tags {
			for _, term := range queryTerms {
				if strings.EqualFold(tag, term) {
					m := ensure(id)
					m.Score++
					m.Reasons = append(m.Reasons, fmt.Sprintf("tag match: %s", term))
				}
			}
		}
	}

	matchedCategories := o.matchCategoryKeywords(query, queryTerms)
	for category := range matchedCategories {
		for id, doc := range o.documents {
			if _, already := scores[id]; already || doc.Category != category {
				continue
			}
			scores[id] = &SearchMatch{
				DocumentID: id,
				Score:      0.5,
				Reasons:    []string{fmt.Sprintf("category match: %s", category)},
			}
		}
	}

	var results []SearchMatch
	for id, m := range scores {
		if category != "" && o.documents[id].Category != category {
			continue
		}
		results = append(results, *m)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

func containsToken(tokens []string, term string) bool {
	for _, t := range tokens {
		if t == term {
			return true
		}
	}
	return false
}

// matchCategoryKeywords returns the set of categories whose rule keywords
// appear either in the raw query string or as one of its tokens.
func (o *Organizer) matchCategoryKeywords(query string, queryTerms []string) map[string]bool {
	matched := map[string]bool{}
	lowerQuery := strings.ToLower(query)

	for category, keywords := range o.config.CategoryRules {
		for _, keyword := range keywords {
			lowerKeyword := strings.ToLower(keyword)
			if strings.Contains(lowerQuery, lowerKeyword) {
				matched[category] = true
				break
			}
			for _, term := range queryTerms {
				if term == lowerKeyword || strings.Contains(term, lowerKeyword) {
					matched[category] = true
					break
				}
			}
		}
	}
	return matched
}
