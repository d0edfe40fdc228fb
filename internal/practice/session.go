// Package practice owns the per-word state of one recitation practice run:
// lifecycle status, attempts, progressive hints, the stuck-word countdown and
// the completion summary.
//
// A Session wraps an alignment engine and layers the assistance protocol on
// top. It is driven by three call families: transcript updates from the
// recognizer, Tick from a periodic timer, and explicit player actions. All of
// them mutate state synchronously and never block; a concurrent host must
// serialize calls through a single owner.
package practice

import (
	"fmt"
	"log/slog"

	"github.com/msaudi/tasmee/internal/align"
	"github.com/msaudi/tasmee/internal/match"
	"github.com/msaudi/tasmee/pkg/quran"
)

// Difficulty selects the hint threshold for memory mode.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid reports whether d is a recognised difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// hintThreshold returns the attempt count at which the stuck-word protocol
// engages, or -1 when hints are disabled.
func (d Difficulty) hintThreshold() int {
	switch d {
	case DifficultyEasy:
		return 2
	case DifficultyMedium:
		return 3
	}
	return -1
}

// HintFullReveal is the cap of the hint ladder: the whole word is shown.
// Levels 1 and 2 reveal the first one and two letters.
const HintFullReveal = 3

// Word is the session view of one expected word.
type Word struct {
	align.WordState

	// HintsShown is the hint ladder level reached, 0 through HintFullReveal.
	HintsShown int

	// Revealed is true when the word text may be displayed: always outside
	// memory mode, and once correct or fully revealed within it.
	Revealed bool
}

// Snapshot is the session state handed to the presentation layer after every
// mutation.
type Snapshot struct {
	Words     []Word
	Markers   []quran.VerseMarker
	Cursor    int
	Completed bool
	Accuracy  float64
}

// Session is the practice state machine for one loaded passage.
type Session struct {
	logger *slog.Logger

	engine  *align.Engine
	markers []quran.VerseMarker

	strictness match.Strictness
	memoryMode bool
	difficulty Difficulty

	hints        []int
	timerStarted []bool
	timer        *stuckTimer

	elapsed int
	summary *SessionSummary
}

// Option configures a Session.
type Option func(*Session)

// WithStrictness sets the initial match strictness. Invalid values are
// ignored.
func WithStrictness(s match.Strictness) Option {
	return func(ses *Session) {
		if s.IsValid() {
			ses.strictness = s
		}
	}
}

// WithMode sets the initial practice mode. An invalid difficulty is ignored.
func WithMode(memoryEnabled bool, d Difficulty) Option {
	return func(ses *Session) {
		ses.memoryMode = memoryEnabled
		if d.IsValid() {
			ses.difficulty = d
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(ses *Session) {
		if l != nil {
			ses.logger = l
		}
	}
}

// NewSession returns a session with no passage loaded, medium strictness and
// normal (non-memory) mode at medium difficulty.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:     slog.Default(),
		strictness: match.StrictnessMedium,
		difficulty: DifficultyMedium,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadPassage segments text and replaces any previously loaded passage,
// discarding all prior session state.
func (s *Session) LoadPassage(text string) Snapshot {
	seg := quran.Segment(text)

	s.engine = align.NewEngine(seg.Words)
	s.markers = seg.Markers
	s.hints = make([]int, len(seg.Words))
	s.timerStarted = make([]bool, len(seg.Words))
	s.timer = nil
	s.elapsed = 0
	s.summary = nil

	s.logger.Info("practice: passage loaded",
		"words", len(seg.Words), "markers", len(seg.Markers))
	return s.Snapshot()
}

// ApplyTranscript feeds one recognizer update through the alignment engine
// and runs hint escalation on the outcome. Safe to call with no passage
// loaded; the update is then ignored.
func (s *Session) ApplyTranscript(tokens []string, isFinal bool) Snapshot {
	if s.engine == nil {
		return s.Snapshot()
	}

	res := s.engine.Apply(tokens, isFinal, s.alignOptions())
	for _, pos := range res.Matched {
		s.cancelTimer(pos)
	}
	if s.memoryMode && isFinal {
		s.escalate(res.Cursor)
	}
	s.maybeComplete()
	return s.Snapshot()
}

// escalate applies the stuck-word protocol to the word at cursor: a timer
// when attempts reach the threshold, hint ladder steps beyond it.
func (s *Session) escalate(cursor int) {
	threshold := s.difficulty.hintThreshold()
	if threshold < 0 || cursor >= len(s.hints) {
		return
	}

	attempts := s.engine.Words()[cursor].Attempts
	switch {
	case attempts == threshold:
		if s.timer == nil && !s.timerStarted[cursor] {
			s.timer = newStuckTimer(cursor)
			s.timerStarted[cursor] = true
			s.logger.Debug("practice: stuck timer started", "position", cursor)
		}
	case attempts > threshold:
		if h := min(attempts-threshold, HintFullReveal); h > s.hints[cursor] {
			s.hints[cursor] = h
			s.logger.Debug("practice: hint escalated", "position", cursor, "level", h)
		}
	}
}

// Tick advances session time by one unit, counting elapsed practice time and
// driving the stuck-timer countdown. Expiry shows the first hint.
func (s *Session) Tick() Snapshot {
	s.elapsed++
	if s.timer != nil && s.timer.tick() {
		pos := s.timer.position
		s.timer = nil
		if s.hints[pos] < 1 {
			s.hints[pos] = 1
			s.logger.Debug("practice: stuck timer expired", "position", pos)
		}
	}
	return s.Snapshot()
}

// ExtendStuckTimer grants the player more time on the active countdown.
// No-op when no timer is running.
func (s *Session) ExtendStuckTimer() {
	if s.timer != nil {
		s.timer.extend()
	}
}

// SkipStuckTimer ends the active countdown immediately and shows the first
// hint. No-op when no timer is running.
func (s *Session) SkipStuckTimer() {
	if s.timer == nil {
		return
	}
	pos := s.timer.position
	s.timer = nil
	if s.hints[pos] < 1 {
		s.hints[pos] = 1
	}
}

// RevealCurrentWord fully reveals the current word and completes it. This is
// the only path on which a reveal finishes a word; automatic escalation never
// does. No-op when no passage is loaded or the passage is complete.
func (s *Session) RevealCurrentWord() Snapshot {
	if s.engine == nil {
		return s.Snapshot()
	}
	cursor := s.engine.Cursor()
	if cursor < len(s.hints) && s.engine.MarkCorrect(cursor) {
		s.hints[cursor] = HintFullReveal
		s.cancelTimer(cursor)
		s.logger.Info("practice: word revealed", "position", cursor)
		s.maybeComplete()
	}
	return s.Snapshot()
}

// SetStrictness changes the match strictness for subsequent updates. Invalid
// levels are rejected and the prior configuration retained.
func (s *Session) SetStrictness(level match.Strictness) error {
	if !level.IsValid() {
		return fmt.Errorf("practice: invalid strictness %q", level)
	}
	s.strictness = level
	return nil
}

// SetMode switches memory mode and difficulty. A mode change mid-passage
// restarts the run, so the session is reset. Invalid difficulties are
// rejected and the prior configuration retained.
func (s *Session) SetMode(memoryEnabled bool, d Difficulty) error {
	if !d.IsValid() {
		return fmt.Errorf("practice: invalid difficulty %q", d)
	}
	s.memoryMode = memoryEnabled
	s.difficulty = d
	s.Reset()
	return nil
}

// Reset reverts every word to pending and zeroes attempts, hints, perfect
// flags, timers and elapsed time. Structural data, duplicate tags included,
// is preserved.
func (s *Session) Reset() {
	if s.engine != nil {
		s.engine.Reset()
	}
	for i := range s.hints {
		s.hints[i] = 0
		s.timerStarted[i] = false
	}
	s.timer = nil
	s.elapsed = 0
	s.summary = nil
}

// Summary returns the completion summary. ok is false until the passage
// completes; after that the same snapshot is returned every time.
func (s *Session) Summary() (SessionSummary, bool) {
	if s.summary == nil {
		return SessionSummary{}, false
	}
	return *s.summary, true
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	if s.engine == nil {
		return Snapshot{}
	}

	states := s.engine.Words()
	words := make([]Word, len(states))
	for i, st := range states {
		w := Word{WordState: st, HintsShown: s.hints[i]}
		w.Revealed = !s.memoryMode || st.Status == align.StatusCorrect || w.HintsShown >= HintFullReveal
		words[i] = w
	}

	cursor := s.engine.Cursor()
	return Snapshot{
		Words:     words,
		Markers:   s.markers,
		Cursor:    cursor,
		Completed: len(words) > 0 && cursor >= len(words),
		Accuracy:  s.engine.Accuracy(s.memoryMode),
	}
}

// StuckTimerRemaining reports the units left on the active countdown.
func (s *Session) StuckTimerRemaining() (int, bool) {
	if s.timer == nil {
		return 0, false
	}
	return s.timer.remaining, true
}

// Elapsed returns the session time in Tick units.
func (s *Session) Elapsed() int { return s.elapsed }

// Strictness returns the active match strictness.
func (s *Session) Strictness() match.Strictness { return s.strictness }

// MemoryMode reports whether memory mode is active.
func (s *Session) MemoryMode() bool { return s.memoryMode }

// Difficulty returns the active difficulty.
func (s *Session) Difficulty() Difficulty { return s.difficulty }

func (s *Session) alignOptions() align.Options {
	return align.Options{Strictness: s.strictness, MemoryMode: s.memoryMode}
}

func (s *Session) cancelTimer(position int) {
	if s.timer != nil && s.timer.position == position {
		s.timer = nil
	}
}

// maybeComplete computes the summary exactly once when the cursor reaches the
// end of the passage.
func (s *Session) maybeComplete() {
	if s.summary != nil || s.engine == nil {
		return
	}
	snap := s.Snapshot()
	if !snap.Completed {
		return
	}
	sum := Summarize(snap.Words, s.elapsed, snap.Accuracy)
	s.summary = &sum
	s.logger.Info("practice: passage completed",
		"accuracy", sum.Accuracy, "perfect_run", sum.IsPerfectRun,
		"attempts", sum.TotalAttempts, "elapsed_units", sum.ElapsedUnits)
}
