// Package report holds estimation reports in a bounded, process-wide,
// in-memory store. There is no persistence: a restart loses all reports,
// which is acceptable for a short-lived, non-authoritative cache.
package report

import (
	"errors"
	"sort"
	"sync"

	"estimatex/internal"
)

var (
	ErrNotFound  = errors.New("report not found")
	ErrForbidden = errors.New("report access forbidden")
)

// Store is safe for concurrent use; a single mutex guards the map at the
// granularity of individual insert/evict/lookup operations.
type Store struct {
	mu       sync.Mutex
	capacity int
	reports  map[string]internal.Report
}

// NewStore creates a store that holds at most capacity reports. Once the
// count exceeds capacity, the oldest-inserted entries (by lexical key
// order, keys embed the creation time) are evicted. This is an
// unbounded-growth guard, not a precise LRU.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		reports:  map[string]internal.Report{},
	}
}

func (s *Store) Put(r internal.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[r.ReportID] = r
	if len(s.reports) <= s.capacity {
		return
	}

	keys := make([]string, 0, len(s.reports))
	for k := range s.reports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys[:len(keys)-s.capacity] {
		delete(s.reports, k)
	}
}

// Get returns the report for id. A report with an owner is only
// readable by that owner; principal is the requesting user.
func (s *Store) Get(id, principal string) (internal.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return internal.Report{}, ErrNotFound
	}
	if r.OwnerID != "" && r.OwnerID != principal {
		return internal.Report{}, ErrForbidden
	}
	return r, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
