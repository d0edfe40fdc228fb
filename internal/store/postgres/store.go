// Package postgres implements [store.Store] on PostgreSQL through a
// [pgxpool.Pool]. The schema is created on startup; stuck-word lists are
// stored as JSONB alongside the scalar summary columns.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msaudi/tasmee/internal/practice"
	"github.com/msaudi/tasmee/internal/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// schema holds the DDL statements run by [Migrate], in order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS practice_sessions (
		id             TEXT PRIMARY KEY,
		completed_at   TIMESTAMPTZ NOT NULL,
		strictness     TEXT NOT NULL,
		difficulty     TEXT NOT NULL,
		memory_mode    BOOLEAN NOT NULL,
		total_words    INTEGER NOT NULL,
		perfect_words  INTEGER NOT NULL,
		total_attempts INTEGER NOT NULL,
		hints_used     INTEGER NOT NULL,
		accuracy       DOUBLE PRECISION NOT NULL,
		is_perfect_run BOOLEAN NOT NULL,
		elapsed_units  INTEGER NOT NULL,
		stuck_words    JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS practice_sessions_completed_at_idx
		ON practice_sessions (completed_at DESC)`,
}

// Store is the PostgreSQL-backed session summary store.
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate runs the schema statements. Idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

// SaveSummary implements [store.Store].
func (s *Store) SaveSummary(ctx context.Context, rec store.SessionRecord) error {
	stuck, err := json.Marshal(rec.Summary.StuckWords)
	if err != nil {
		return fmt.Errorf("postgres store: marshal stuck words: %w", err)
	}

	const q = `
		INSERT INTO practice_sessions
		    (id, completed_at, strictness, difficulty, memory_mode,
		     total_words, perfect_words, total_attempts, hints_used,
		     accuracy, is_perfect_run, elapsed_units, stuck_words)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.pool.Exec(ctx, q,
		rec.ID,
		rec.CompletedAt,
		string(rec.Strictness),
		string(rec.Difficulty),
		rec.MemoryMode,
		rec.Summary.TotalWords,
		rec.Summary.PerfectWords,
		rec.Summary.TotalAttempts,
		rec.Summary.HintsUsed,
		rec.Summary.Accuracy,
		rec.Summary.IsPerfectRun,
		rec.Summary.ElapsedUnits,
		stuck,
	)
	if err != nil {
		return fmt.Errorf("postgres store: save summary: %w", err)
	}
	return nil
}

// RecentSummaries implements [store.Store].
func (s *Store) RecentSummaries(ctx context.Context, limit int) ([]store.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
		SELECT id, completed_at, strictness, difficulty, memory_mode,
		       total_words, perfect_words, total_attempts, hints_used,
		       accuracy, is_perfect_run, elapsed_units, stuck_words
		FROM   practice_sessions
		ORDER  BY completed_at DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent summaries: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.SessionRecord, error) {
		var (
			rec   store.SessionRecord
			stuck []byte
		)
		if err := row.Scan(
			&rec.ID,
			&rec.CompletedAt,
			&rec.Strictness,
			&rec.Difficulty,
			&rec.MemoryMode,
			&rec.Summary.TotalWords,
			&rec.Summary.PerfectWords,
			&rec.Summary.TotalAttempts,
			&rec.Summary.HintsUsed,
			&rec.Summary.Accuracy,
			&rec.Summary.IsPerfectRun,
			&rec.Summary.ElapsedUnits,
			&stuck,
		); err != nil {
			return store.SessionRecord{}, err
		}
		if len(stuck) > 0 {
			var words []practice.StuckWord
			if err := json.Unmarshal(stuck, &words); err != nil {
				return store.SessionRecord{}, fmt.Errorf("unmarshal stuck words: %w", err)
			}
			rec.Summary.StuckWords = words
		}
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect rows: %w", err)
	}
	return records, nil
}

// Close implements [store.Store]. It releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
