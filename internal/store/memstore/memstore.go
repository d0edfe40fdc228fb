// Package memstore provides an in-memory [store.Store] used in tests and
// when no PostgreSQL DSN is configured. Records are lost on shutdown.
package memstore

import (
	"context"
	"sync"

	"github.com/msaudi/tasmee/internal/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store keeps session records in memory. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	records []store.SessionRecord
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{}
}

// SaveSummary implements [store.Store].
func (s *Store) SaveSummary(_ context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// RecentSummaries implements [store.Store]. Records are returned newest
// first, assuming insertion order tracks completion order.
func (s *Store) RecentSummaries(_ context.Context, limit int) ([]store.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]store.SessionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Close implements [store.Store]. It is a no-op.
func (s *Store) Close() {}
