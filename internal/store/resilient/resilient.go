// Package resilient wraps a summary store with a failure breaker and a replay
// queue. A completed session summary is never lost to a flapping backend:
// while the backend is considered down, writes are absorbed into a bounded
// queue and replayed on the first successful write after the retry window.
package resilient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/msaudi/tasmee/internal/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Config holds tuning knobs for a resilient [Store].
type Config struct {
	// MaxFailures is the number of consecutive write failures before the
	// breaker trips and writes are queued without touching the backend.
	// Default: 3.
	MaxFailures int

	// RetryAfter is how long the breaker stays tripped before the next write
	// probes the backend again. Default: 30s.
	RetryAfter time.Duration

	// QueueLimit caps the replay queue. When full, the oldest queued record
	// is dropped to admit the new one. Default: 256.
	QueueLimit int
}

// Store decorates another [store.Store] with the breaker and replay queue.
// Safe for concurrent use.
type Store struct {
	inner store.Store

	maxFailures int
	retryAfter  time.Duration
	queueLimit  int

	mu        sync.Mutex
	failures  int
	trippedAt time.Time
	pending   []store.SessionRecord
}

// Wrap decorates inner. Zero-value config fields get defaults.
func Wrap(inner store.Store, cfg Config) *Store {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 30 * time.Second
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = 256
	}
	return &Store{
		inner:       inner,
		maxFailures: cfg.MaxFailures,
		retryAfter:  cfg.RetryAfter,
		queueLimit:  cfg.QueueLimit,
	}
}

// SaveSummary implements [store.Store]. A write against a tripped or failing
// backend is queued instead of reported as an error; the caller may treat the
// summary as accepted.
func (s *Store) SaveSummary(ctx context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tripped() {
		s.enqueue(rec)
		return nil
	}

	if err := s.inner.SaveSummary(ctx, rec); err != nil {
		s.failures++
		if s.failures >= s.maxFailures {
			s.trippedAt = time.Now()
			slog.Warn("summary store breaker tripped",
				"consecutive_failures", s.failures, "retry_after", s.retryAfter)
		}
		s.enqueue(rec)
		slog.Warn("summary write failed, queued for replay",
			"session_id", rec.ID, "queued", len(s.pending), "err", err)
		return nil
	}

	s.failures = 0
	s.replay(ctx)
	return nil
}

// RecentSummaries implements [store.Store] by delegating to the backend.
func (s *Store) RecentSummaries(ctx context.Context, limit int) ([]store.SessionRecord, error) {
	return s.inner.RecentSummaries(ctx, limit)
}

// Close implements [store.Store]. Queued records get one last write attempt
// before the backend closes.
func (s *Store) Close() {
	s.mu.Lock()
	if len(s.pending) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.failures = 0
		s.trippedAt = time.Time{}
		s.replay(ctx)
		cancel()
		if n := len(s.pending); n > 0 {
			slog.Warn("summary store closing with unreplayed records", "count", n)
		}
	}
	s.mu.Unlock()
	s.inner.Close()
}

// Pending returns the number of records waiting for replay.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// tripped reports whether the breaker currently rejects backend writes.
// An elapsed retry window lets the next write through as a probe.
// Must be called with s.mu held.
func (s *Store) tripped() bool {
	if s.failures < s.maxFailures {
		return false
	}
	if time.Since(s.trippedAt) >= s.retryAfter {
		// Probe: one write may try the backend again.
		s.failures = s.maxFailures - 1
		return false
	}
	return true
}

// enqueue appends rec, evicting the oldest record when the queue is full.
// Must be called with s.mu held.
func (s *Store) enqueue(rec store.SessionRecord) {
	if len(s.pending) >= s.queueLimit {
		dropped := s.pending[0]
		s.pending = s.pending[1:]
		slog.Warn("replay queue full, dropping oldest summary", "session_id", dropped.ID)
	}
	s.pending = append(s.pending, rec)
}

// replay drains the queue until it is empty or a write fails. Must be called
// with s.mu held and the breaker closed.
func (s *Store) replay(ctx context.Context) {
	for len(s.pending) > 0 {
		rec := s.pending[0]
		if err := s.inner.SaveSummary(ctx, rec); err != nil {
			slog.Warn("replay write failed, keeping queue",
				"session_id", rec.ID, "queued", len(s.pending), "err", err)
			return
		}
		s.pending = s.pending[1:]
		slog.Info("replayed queued summary", "session_id", rec.ID, "remaining", len(s.pending))
	}
}
