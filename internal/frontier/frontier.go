package frontier

import (
	"sync"

	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs
- Track crawl depth
- Prevent infinite traversal
- Knows nothing about:
	- fetching
	- extraction
	- markdown
	- storage

It is a data structure + policy module, not a pipeline executor.
*/

// Frontier is a BFS-ordered, deduplicated queue of admitted crawl
// candidates. URLs are dequeued in strict depth order: no URL at depth N+1
// is ever returned while a URL at depth N is still pending.
type Frontier struct {
	mu sync.Mutex

	cfg           config.Config
	queuesByDepth map[int]*FIFOQueue[CrawlToken]
	visited       Set[string]
}

// NewFrontier constructs an uninitialized Frontier. Init must be called
// before Submit or Dequeue.
func NewFrontier() *Frontier {
	return &Frontier{}
}

// NewCrawlFrontier is an alias of NewFrontier.
func NewCrawlFrontier() *Frontier {
	return NewFrontier()
}

// Init resets the frontier to an empty state governed by cfg's depth and
// page limits. Calling Init again discards all pending/visited state.
func (f *Frontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cfg = cfg
	f.queuesByDepth = make(map[int]*FIFOQueue[CrawlToken])
	f.visited = NewSet[string]()
}

// Submit admits candidate into the frontier unless it is a duplicate of an
// already-visited URL, exceeds the configured max depth, or would push the
// visited count past the configured max pages. Rejected candidates are
// silently dropped: the frontier enforces scope, it does not report on it.
func (f *Frontier) Submit(candidate CrawlAdmissionCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth := candidate.DiscoveryMetadata().Depth()
	if maxDepth := f.cfg.MaxDepth(); maxDepth > 0 && depth > maxDepth {
		return
	}

	key := urlutil.Canonicalize(candidate.TargetURL()).String()
	if f.visited.Contains(key) {
		return
	}

	if maxPages := f.cfg.MaxPages(); maxPages > 0 && f.visited.Size() >= maxPages {
		return
	}

	f.visited.Add(key)

	q, ok := f.queuesByDepth[depth]
	if !ok {
		q = NewFIFOQueue[CrawlToken]()
		f.queuesByDepth[depth] = q
	}
	q.Enqueue(NewCrawlToken(candidate.TargetURL(), depth))
}

// Dequeue returns the next token in BFS order, or false if the frontier has
// nothing pending. Gaps between depth levels (a depth submitted without any
// predecessor ever being populated) are skipped rather than dereferenced.
func (f *Frontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth := f.minPendingDepthLocked()
	if depth == -1 {
		return CrawlToken{}, false
	}
	return f.queuesByDepth[depth].Dequeue()
}

// IsDepthExhausted reports whether depth has no pending tokens. Depths that
// were never submitted, already fully dequeued, or negative all count as
// exhausted.
func (f *Frontier) IsDepthExhausted(depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if depth < 0 {
		return true
	}
	q, ok := f.queuesByDepth[depth]
	return !ok || q.Size() == 0
}

// CurrentMinDepth returns the lowest depth with a pending token, or -1 if
// the frontier is empty. Callers use this to detect BFS level completion.
func (f *Frontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.minPendingDepthLocked()
}

func (f *Frontier) minPendingDepthLocked() int {
	min := -1
	for depth, q := range f.queuesByDepth {
		if q == nil || q.Size() == 0 {
			continue
		}
		if min == -1 || depth < min {
			min = depth
		}
	}
	return min
}

// VisitedCount returns the number of unique URLs ever admitted into the
// frontier. It never decreases: the visited set is append-only and tracks
// admission history, not queue occupancy.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.visited.Size()
}

// PendingCount returns the number of tokens still queued across all depths.
func (f *Frontier) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, q := range f.queuesByDepth {
		if q != nil {
			total += q.Size()
		}
	}
	return total
}
