package organizer

import (
	"sort"
	"time"
)

/*
Representation

Document is the set of every version ever added for one normalized URL.
Re-adding content for a known URL appends a DocumentVersion; a different
URL always creates a new Document, even when its content is near-identical
to an existing one (that similarity is instead captured by Related).
*/

type DocumentVersion struct {
	SequenceNumber int
	Timestamp      time.Time
	Title          string
	Text           string
	ChangeSummary  string
}

type Document struct {
	ID          string
	URL         string
	Title       string
	Category    string
	FirstSeen   time.Time
	LastUpdated time.Time
	Tags        []string
	Attributes  map[string]string
	Versions    []DocumentVersion
	Related     map[string]bool
}

func newDocument(id, url string, now time.Time) *Document {
	return &Document{
		ID:          id,
		URL:         url,
		FirstSeen:   now,
		LastUpdated: now,
		Attributes:  map[string]string{},
		Related:     map[string]bool{},
	}
}

func (d *Document) addVersion(title, text string, now time.Time) int {
	seq := len(d.Versions) + 1
	d.Versions = append(d.Versions, DocumentVersion{
		SequenceNumber: seq,
		Timestamp:      now,
		Title:          title,
		Text:           text,
	})
	d.Title = title
	d.LastUpdated = now
	return seq
}

func (d *Document) latestVersion() (DocumentVersion, bool) {
	if len(d.Versions) == 0 {
		return DocumentVersion{}, false
	}
	return d.Versions[len(d.Versions)-1], true
}

// RelatedIDs returns a stable, sorted snapshot of related document ids.
func (d *Document) RelatedIDs() []string {
	ids := make([]string, 0, len(d.Related))
	for id := range d.Related {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Collection is a named grouping of document ids.
type Collection struct {
	ID          string
	Name        string
	Description string
	DocumentIDs []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SearchMatch is one scored hit from Search, with every reason a score was
// attributed to the document.
type SearchMatch struct {
	DocumentID string
	Score      float64
	Reasons    []string
}
