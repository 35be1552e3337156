package fingerprint

import (
	"sort"
	"sync"

	"soft404Go/internal/cache"
	"soft404Go/internal/web"
)

// ProbeResult is one known not-found page.
type ProbeResult struct {
	URL       web.URL
	Extension string
	Body      string // normalized
}

// Corpus is the bounded reference set of not-found bodies. Entries are keyed
// by a strictly increasing synthetic id, so eviction drops the oldest probe.
type Corpus struct {
	mu      sync.Mutex // orders id assignment with insertion
	entries *cache.FIFO[uint64, ProbeResult]
	lastID  uint64
}

// NewCorpus returns an empty corpus holding at most capacity bodies.
func NewCorpus(capacity int) *Corpus {
	return &Corpus{entries: cache.NewFIFO[uint64, ProbeResult](capacity)}
}

// Add stores r and returns its id.
func (c *Corpus) Add(r ProbeResult) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID++
	c.entries.Put(c.lastID, r)
	return c.lastID
}

// Get returns the entry stored under id.
func (c *Corpus) Get(id uint64) (ProbeResult, bool) {
	return c.entries.Get(id)
}

// Entries returns a snapshot, oldest first.
func (c *Corpus) Entries() []ProbeResult {
	return c.entries.Values()
}

// Match returns the first entry whose body is at least IsEqualRatio similar
// to body.
func (c *Corpus) Match(body string) (ProbeResult, bool) {
	for _, r := range c.entries.Values() {
		if SimilarityAtLeast(r.Body, body, IsEqualRatio) {
			return r, true
		}
	}
	return ProbeResult{}, false
}

// Len is the number of stored bodies.
func (c *Corpus) Len() int {
	return c.entries.Len()
}

// PathSet is a grow-only set of domain-path strings.
type PathSet struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

func NewPathSet() *PathSet {
	return &PathSet{paths: make(map[string]struct{})}
}

// Add inserts p and reports whether it was new.
func (s *PathSet) Add(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[p]; ok {
		return false
	}
	s.paths[p] = struct{}{}
	return true
}

func (s *PathSet) Contains(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[p]
	return ok
}

func (s *PathSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// List returns the members sorted.
func (s *PathSet) List() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
