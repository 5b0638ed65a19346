package organizer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/format"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

/*
Responsibilities
- Give every crawled URL a stable, content-addressed Document identity
- Append versions for URLs seen again, rather than duplicating documents
- Categorize documents by keyword rule, defaulting to "uncategorized"
- Maintain an inverted index of stop-word-filtered tokens for search
- Discover related documents by Jaccard similarity over those same tokens
- Group documents into named Collections

Writes (AddDocument, CreateCollection) are serialized behind mu; Search
takes a read lock, so it can proceed concurrently with other reads but
briefly blocks behind an in-flight write.
*/

type Organizer struct {
	config OrganizerConfig

	mu          sync.RWMutex
	documents   map[string]*Document
	docTerms    map[string]map[string]bool
	index       map[string]map[string]bool
	collections map[string]*Collection
}

func NewOrganizer(config OrganizerConfig) *Organizer {
	return &Organizer{
		config:      config,
		documents:   map[string]*Document{},
		docTerms:    map[string]map[string]bool{},
		index:       map[string]map[string]bool{},
		collections: map[string]*Collection{},
	}
}

// AddDocument records content for rawURL: a new Document with a fresh id if
// the normalized URL hasn't been seen before, or a new version appended to
// the existing Document otherwise. Returns the document id and the new
// version's 1-based sequence number.
func (o *Organizer) AddDocument(rawURL string, content format.ProcessedContent) (string, int, error) {
	normalized := urlutil.Parse(rawURL, nil)
	if !normalized.IsValid() {
		return "", 0, fmt.Errorf("organizer: invalid document url %q: %s", rawURL, normalized.InvalidReason())
	}

	id, err := hashutil.HashBytes([]byte(normalized.Normalized()), o.config.HashAlgo)
	if err != nil {
		return "", 0, fmt.Errorf("organizer: hashing document id: %w", err)
	}

	now := time.Now()
	title := content.Title()
	text := content.Markdown()

	o.mu.Lock()
	defer o.mu.Unlock()

	doc, exists := o.documents[id]
	if !exists {
		doc = newDocument(id, normalized.Normalized(), now)
		o.documents[id] = doc
	}
	seq := doc.addVersion(title, text, now)
	doc.Category = o.determineCategory(title, text)

	headingTexts := make([]string, len(content.Headings()))
	for i, h := range content.Headings() {
		headingTexts[i] = h.Text
	}
	terms := termSet(o.config.StopWords, append([]string{title, text}, headingTexts...)...)

	o.docTerms[id] = terms
	for term := range terms {
		bucket, ok := o.index[term]
		if !ok {
			bucket = map[string]bool{}
			o.index[term] = bucket
		}
		bucket[id] = true
	}

	o.updateRelated(id, terms)

	return id, seq, nil
}

// determineCategory scans title+text for the first matching category rule,
// in CategoryOrder when set (falling back to iterating CategoryRules when
// not, for callers that don't care about tie-break determinism).
func (o *Organizer) determineCategory(title, text string) string {
	if len(o.config.CategoryRules) == 0 {
		return uncategorized
	}
	full := strings.ToLower(title + " " + text)

	order := o.config.CategoryOrder
	if len(order) == 0 {
		for category := range o.config.CategoryRules {
			order = append(order, category)
		}
	}
	for _, category := range order {
		for _, keyword := range o.config.CategoryRules[category] {
			if strings.Contains(full, strings.ToLower(keyword)) {
				return category
			}
		}
	}
	return uncategorized
}

func (o *Organizer) updateRelated(id string, terms map[string]bool) {
	if len(terms) == 0 {
		return
	}
	for otherID, otherTerms := range o.docTerms {
		if otherID == id || len(otherTerms) == 0 {
			continue
		}
		if jaccardSimilarity(terms, otherTerms) >= o.config.MinSimilarityScore {
			o.documents[id].Related[otherID] = true
			o.documents[otherID].Related[id] = true
		}
	}
}

// GetDocument returns the document with id, if any.
func (o *Organizer) GetDocument(id string) (*Document, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	doc, ok := o.documents[id]
	return doc, ok
}

// RelatedDocuments returns the documents related to id, in no particular
// order.
func (o *Organizer) RelatedDocuments(id string) []*Document {
	o.mu.RLock()
	defer o.mu.RUnlock()
	doc, ok := o.documents[id]
	if !ok {
		return nil
	}
	var related []*Document
	for relatedID := range doc.Related {
		if rel, ok := o.documents[relatedID]; ok {
			related = append(related, rel)
		}
	}
	return related
}

// CreateCollection groups a set of existing document ids under a name and
// description. Ids not present in the organizer are silently dropped.
func (o *Organizer) CreateCollection(name, description string, documentIDs []string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var valid []string
	for _, id := range documentIDs {
		if _, ok := o.documents[id]; ok {
			valid = append(valid, id)
		}
	}

	id, err := hashutil.HashBytes([]byte(name+"|"+description+"|"+fmt.Sprint(len(o.collections))), o.config.HashAlgo)
	if err != nil {
		return "", fmt.Errorf("organizer: hashing collection id: %w", err)
	}

	now := time.Now()
	o.collections[id] = &Collection{
		ID:          id,
		Name:        name,
		Description: description,
		DocumentIDs: valid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return id, nil
}

func (o *Organizer) GetCollection(id string) (*Collection, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.collections[id]
	return c, ok
}
