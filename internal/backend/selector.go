package backend

/*
Responsibilities

- Hold a registry of named backends, each with matching Criteria
- Choose the best-matching backend for a URL at selection time
- Track live success/failure/load metrics per backend, updated by the
  engine after every completed request

Read-mostly after registration; metrics updates are the only mutation,
guarded by a mutex.
*/

import (
	"strings"
	"sync"

	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

// Criteria governs whether a backend is eligible for a given URL.
type Criteria struct {
	Priority          int
	ContentTypes      []string
	URLPatterns       []string
	Schemes           []string
	MaxLoad           int
	MinSuccessRate    float64
}

// Metrics tracks a backend's live operating stats.
type Metrics struct {
	Successes      int64
	Failures       int64
	InFlight       int
	avgResponseSec float64
}

func (m Metrics) SuccessRate() float64 {
	total := m.Successes + m.Failures
	if total == 0 {
		return 1.0
	}
	return float64(m.Successes) / float64(total)
}

func (m Metrics) AverageResponseSeconds() float64 { return m.avgResponseSec }

type registration struct {
	name     string
	backend  Backend
	criteria Criteria
	metrics  Metrics
	order    int
}

// Selector is the registry from backend name to (Backend, Criteria, live
// metrics) described by the backend-selection design.
type Selector struct {
	mu      sync.Mutex
	entries map[string]*registration
	seq     int
}

func NewSelector() *Selector {
	return &Selector{entries: make(map[string]*registration)}
}

// Register adds b to the registry under name, governed by criteria.
// Later registrations with the same name replace the previous one.
func (s *Selector) Register(name string, b Backend, criteria Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.entries[name] = &registration{name: name, backend: b, criteria: criteria, order: s.seq}
}

// Select returns the highest-priority backend whose Criteria matches
// target, ties broken by registration order. Returns nil if none match.
func (s *Selector) Select(target urlutil.URLInfo) Backend {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *registration
	for _, candidate := range s.entries {
		if !criteriaMatches(candidate.criteria, candidate.metrics, target) {
			continue
		}
		if best == nil ||
			candidate.criteria.Priority > best.criteria.Priority ||
			(candidate.criteria.Priority == best.criteria.Priority && candidate.order < best.order) {
			best = candidate
		}
	}
	if best == nil {
		return nil
	}
	return best.backend
}

// RecordResult updates the named backend's live metrics after a completed
// request. responseSeconds feeds an exponential moving average.
func (s *Selector) RecordResult(name string, success bool, responseSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.entries[name]
	if !ok {
		return
	}
	if success {
		reg.metrics.Successes++
	} else {
		reg.metrics.Failures++
	}
	const smoothing = 0.2
	if reg.metrics.avgResponseSec == 0 {
		reg.metrics.avgResponseSec = responseSeconds
	} else {
		reg.metrics.avgResponseSec = smoothing*responseSeconds + (1-smoothing)*reg.metrics.avgResponseSec
	}
}

// AcquireSlot and ReleaseSlot track in-flight load per backend so Criteria's
// MaxLoad can be enforced at Select time.
func (s *Selector) AcquireSlot(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.entries[name]; ok {
		reg.metrics.InFlight++
	}
}

func (s *Selector) ReleaseSlot(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.entries[name]; ok && reg.metrics.InFlight > 0 {
		reg.metrics.InFlight--
	}
}

func criteriaMatches(c Criteria, m Metrics, target urlutil.URLInfo) bool {
	if len(c.Schemes) > 0 && !containsFold(c.Schemes, target.Scheme()) {
		return false
	}
	if len(c.URLPatterns) > 0 && !anyPatternMatches(c.URLPatterns, target.Normalized()) {
		return false
	}
	if c.MaxLoad > 0 && m.InFlight >= c.MaxLoad {
		return false
	}
	if c.MinSuccessRate > 0 && m.SuccessRate() < c.MinSuccessRate {
		return false
	}
	return true
}

func anyPatternMatches(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if strings.Contains(p, "*") {
			if globMatch(p, candidate) {
				return true
			}
			continue
		}
		if strings.Contains(candidate, p) {
			return true
		}
	}
	return false
}

// globMatch supports any number of "*" wildcards (each matching any run of
// characters), sufficient for the URL-pattern allow-lists backends register
// with (e.g. "https://*.readthedocs.io/*").
func globMatch(pattern, candidate string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == candidate
	}
	if !strings.HasPrefix(candidate, parts[0]) {
		return false
	}
	rest := candidate[len(parts[0]):]
	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, mid)
		if i < 0 {
			return false
		}
		rest = rest[i+len(mid):]
	}
	return strings.HasSuffix(rest, parts[len(parts)-1])
}

func containsFold(list []string, item string) bool {
	for _, v := range list {
		if strings.EqualFold(v, item) {
			return true
		}
	}
	return false
}
