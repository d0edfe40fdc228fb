package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msaudi/tasmee/internal/config"
	"github.com/msaudi/tasmee/internal/match"
	"github.com/msaudi/tasmee/internal/observe"
	"github.com/msaudi/tasmee/internal/practice"
	"github.com/msaudi/tasmee/internal/store"
)

// ManagedSession pairs one practice session with its identity and
// bookkeeping.
//
// The embedded [practice.Session] is not safe for concurrent use: exactly one
// connection goroutine owns it and serializes every mutation through itself.
// The manager only touches the surrounding metadata.
type ManagedSession struct {
	ID        string
	StartedAt time.Time
	Session   *practice.Session

	// persisted guards against writing the same summary twice.
	// Accessed only under the manager mutex.
	persisted bool
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
type SessionManagerConfig struct {
	// Defaults supplies the practice settings for new sessions. Called on
	// every Create so a config watcher can update the defaults live. When
	// nil, built-in defaults are used.
	Defaults func() config.PracticeConfig

	// Store receives completed session summaries. Required.
	Store store.Store

	// Metrics is the instrument set for session gauges and counters.
	// When nil, [observe.DefaultMetrics] is used.
	Metrics *observe.Metrics
}

// SessionManager tracks the active practice sessions, creates them with the
// configured defaults, and persists their summaries on completion.
// All exported methods are safe for concurrent use.
type SessionManager struct {
	defaults func() config.PracticeConfig
	store    store.Store
	metrics  *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*ManagedSession
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = func() config.PracticeConfig {
			return config.PracticeConfig{
				DefaultStrictness: match.StrictnessMedium,
				DefaultDifficulty: practice.DifficultyMedium,
			}
		}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &SessionManager{
		defaults: defaults,
		store:    cfg.Store,
		metrics:  metrics,
		sessions: make(map[string]*ManagedSession),
	}
}

// Create starts a new practice session with the current defaults and
// registers it. The returned session is owned by the caller's goroutine.
func (sm *SessionManager) Create(ctx context.Context) *ManagedSession {
	d := sm.defaults()

	ms := &ManagedSession{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Session: practice.NewSession(
			practice.WithStrictness(d.DefaultStrictness),
			practice.WithMode(d.MemoryMode, d.DefaultDifficulty),
		),
	}

	sm.mu.Lock()
	sm.sessions[ms.ID] = ms
	sm.mu.Unlock()

	sm.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("session created",
		"session_id", ms.ID,
		"strictness", d.DefaultStrictness,
		"difficulty", d.DefaultDifficulty,
		"memory_mode", d.MemoryMode,
	)
	return ms
}

// Get returns the session registered under id.
func (sm *SessionManager) Get(id string) (*ManagedSession, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	ms, ok := sm.sessions[id]
	return ms, ok
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Persist writes the session's completion summary to the store, exactly once
// per session. Calling it before the passage completes is an error.
func (sm *SessionManager) Persist(ctx context.Context, ms *ManagedSession) error {
	summary, ok := ms.Session.Summary()
	if !ok {
		return fmt.Errorf("app: session %s has no summary to persist", ms.ID)
	}

	sm.mu.Lock()
	if ms.persisted {
		sm.mu.Unlock()
		return nil
	}
	ms.persisted = true
	sm.mu.Unlock()

	rec := store.SessionRecord{
		ID:          ms.ID,
		CompletedAt: time.Now().UTC(),
		Strictness:  ms.Session.Strictness(),
		Difficulty:  ms.Session.Difficulty(),
		MemoryMode:  ms.Session.MemoryMode(),
		Summary:     summary,
	}
	if err := sm.store.SaveSummary(ctx, rec); err != nil {
		// Allow a retry on the next completion signal.
		sm.mu.Lock()
		ms.persisted = false
		sm.mu.Unlock()
		return fmt.Errorf("app: persist session %s: %w", ms.ID, err)
	}

	sm.metrics.RecordCompletion(ctx, summary.IsPerfectRun)
	slog.Info("session summary persisted",
		"session_id", ms.ID,
		"accuracy", summary.Accuracy,
		"perfect_run", summary.IsPerfectRun,
	)
	return nil
}

// Remove unregisters the session. A completed but not yet persisted summary
// is written on the way out, best effort.
func (sm *SessionManager) Remove(ctx context.Context, id string) {
	sm.mu.Lock()
	ms, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	if !ok {
		return
	}

	if _, done := ms.Session.Summary(); done {
		if err := sm.Persist(ctx, ms); err != nil {
			slog.Warn("session removal: persist failed", "session_id", id, "err", err)
		}
	}

	sm.metrics.ActiveSessions.Add(ctx, -1)
	slog.Info("session removed", "session_id", id, "active", sm.Count())
}
