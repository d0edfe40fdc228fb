// Package store defines the persistence boundary for completed practice
// sessions. The engine itself never reads or writes storage; the session
// manager hands a [SessionRecord] to a Store when a passage completes.
//
// Implementations live in subpackages: [postgres] for durable storage and
// [memstore] for tests and DSN-less runs.
package store

import (
	"context"
	"time"

	"github.com/msaudi/tasmee/internal/match"
	"github.com/msaudi/tasmee/internal/practice"
)

// SessionRecord is one completed practice session as persisted.
type SessionRecord struct {
	// ID is the session identifier assigned by the session manager.
	ID string

	// CompletedAt is when the passage was finished.
	CompletedAt time.Time

	// Strictness, Difficulty and MemoryMode are the settings the session
	// ran with, recorded for later progress analysis.
	Strictness match.Strictness
	Difficulty practice.Difficulty
	MemoryMode bool

	// Summary is the aggregated outcome.
	Summary practice.SessionSummary
}

// Store persists completed session summaries.
type Store interface {
	// SaveSummary writes one completed session record.
	SaveSummary(ctx context.Context, rec SessionRecord) error

	// RecentSummaries returns up to limit records, most recent first.
	RecentSummaries(ctx context.Context, limit int) ([]SessionRecord, error)

	// Close releases any resources held by the store.
	Close()
}
