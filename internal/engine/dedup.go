// Package engine implements the bounded-concurrency crawl scheduler: a
// work queue of heterogeneous items, a duplicate filter, and the recursive
// result-dispatch loop that drives feed-discovery parsers to a fixed point
// (spec §4.4).
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/feedhawk/feedhawk/internal/urlutil"
)

// DuplicateFilter is the set of (method, canonical URL) fingerprints used
// to reject already-seen work (spec §4.1). Enqueues run concurrently from
// every worker goroutine, so the set is guarded by a mutex and MarkAndTest
// is an atomic test-and-set.
type DuplicateFilter struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDuplicateFilter creates an empty filter.
func NewDuplicateFilter() *DuplicateFilter {
	return &DuplicateFilter{seen: make(map[string]struct{})}
}

// fingerprint derives the dedup key from (method, normalized URL) per spec §3.
func fingerprint(method, rawURL string) string {
	h := sha256.Sum256([]byte(method + " " + urlutil.Canonicalize(rawURL)))
	return hex.EncodeToString(h[:16])
}

// MarkAndTest marks (method, url) as seen and reports whether it was
// already present (spec §4.1 contract: mark_and_test).
func (d *DuplicateFilter) MarkAndTest(method, rawURL string) (alreadySeen bool) {
	key := fingerprint(method, rawURL)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, alreadySeen = d.seen[key]
	d.seen[key] = struct{}{}
	return alreadySeen
}

// Count returns the number of unique fingerprints seen — stats.urls_seen
// (spec §4.4 "Statistics").
func (d *DuplicateFilter) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
