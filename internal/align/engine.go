// Package align advances a cursor over the expected word sequence as
// transcript updates arrive from the recognizer.
//
// The recognizer re-delivers a growing token list on interim updates and
// resets to a short list after a pause. Re-matching from token zero would
// re-process satisfied words and double-count attempts, so Apply compares the
// incoming token count against the cursor to tell a continuation of the same
// utterance from a fresh utterance after silence, and dedupes mismatches per
// (position, token) pair within the current utterance.
//
// The engine performs no I/O and no locking. It has exactly one logical
// writer; a concurrent host must serialize all mutation externally.
package align

import (
	"strings"

	"github.com/msaudi/tasmee/internal/match"
	"github.com/msaudi/tasmee/pkg/quran"
)

// Status is the lifecycle state of one expected word.
type Status string

const (
	StatusPending Status = "pending"
	StatusCurrent Status = "current"
	StatusCorrect Status = "correct"
)

// WordState is the mutable per-word tracking record. Word is structural data
// from segmentation; the remaining fields are session state.
type WordState struct {
	Word      quran.ExpectedWord
	Status    Status
	Attempts  int
	IsPerfect bool
}

// Options configures one Apply call. Passed explicitly on every call so the
// engine carries no ambient mode state.
type Options struct {
	Strictness match.Strictness

	// MemoryMode enables attempt counting on final mismatches. Outside memory
	// mode mismatches are visible feedback only.
	MemoryMode bool
}

// Result reports the outcome of one transcript update.
type Result struct {
	// Cursor is the index of the first non-correct word after the update,
	// equal to len(words) when the passage is complete.
	Cursor int

	// Matched lists the positions newly marked correct by this update, in
	// order. The caller uses it to cancel stuck timers on those positions.
	Matched []int

	// Completed is true when every expected word is correct.
	Completed bool

	// Accuracy after the update, in [0, 1]. See [Engine.Accuracy].
	Accuracy float64
}

// attemptKey identifies one counted mismatch within the current utterance.
type attemptKey struct {
	position int
	token    string
}

// Engine aligns transcript updates against one loaded passage.
type Engine struct {
	words   []WordState
	counted map[attemptKey]struct{}
}

// NewEngine builds an engine over the segmented passage. The first word, if
// any, starts current and the rest pending.
func NewEngine(expected []quran.ExpectedWord) *Engine {
	e := &Engine{
		words:   make([]WordState, len(expected)),
		counted: make(map[attemptKey]struct{}),
	}
	for i, w := range expected {
		e.words[i] = WordState{Word: w, Status: StatusPending}
	}
	if len(e.words) > 0 {
		e.words[0].Status = StatusCurrent
	}
	return e
}

// Cursor returns the index of the first non-correct word, len(words) when all
// are correct. Derived from word status on every call so it can never
// desynchronize from state.
func (e *Engine) Cursor() int {
	for i := range e.words {
		if e.words[i].Status != StatusCorrect {
			return i
		}
	}
	return len(e.words)
}

// Words returns the word states. The slice is shared with the engine; callers
// that outlive the next Apply must copy it.
func (e *Engine) Words() []WordState {
	return e.words
}

// Apply processes one transcript update and returns the resulting cursor,
// newly matched positions, completion flag and accuracy.
//
// When the token list is at least cursor long the first cursor tokens are
// treated as already consumed and only the tail is processed; a shorter list
// is a fresh utterance and is processed from its start. Matching is purely
// positional: a token that fails against the cursor word is a failed attempt
// there, never a match further ahead. Attempts count only in memory mode, only
// on final chunks, and only once per (position, token) pair per utterance.
//
// Empty updates and updates on a completed passage mutate nothing.
func (e *Engine) Apply(tokens []string, isFinal bool, opts Options) Result {
	cursor := e.Cursor()
	if cursor >= len(e.words) || len(tokens) == 0 {
		return e.result(cursor, nil, opts)
	}

	if len(tokens) >= cursor {
		tokens = tokens[cursor:]
	}

	var matched []int
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if cursor >= len(e.words) {
			break
		}

		w := &e.words[cursor]
		if match.Matches(tok, w.Word.PlainText, opts.Strictness) {
			w.IsPerfect = w.Attempts == 0
			w.Status = StatusCorrect
			matched = append(matched, cursor)
			clear(e.counted)
			cursor++
			if cursor < len(e.words) {
				e.words[cursor].Status = StatusCurrent
			}
			continue
		}

		if opts.MemoryMode && isFinal {
			key := attemptKey{position: cursor, token: tok}
			if _, seen := e.counted[key]; !seen {
				e.counted[key] = struct{}{}
				w.Attempts++
			}
		}
	}

	return e.result(cursor, matched, opts)
}

// MarkCorrect forces the word at position correct without a matching token,
// for example when the player gives up and reveals it. The word is never
// flagged perfect. Reports whether the position was open to be completed.
func (e *Engine) MarkCorrect(position int) bool {
	if position < 0 || position >= len(e.words) {
		return false
	}
	w := &e.words[position]
	if w.Status == StatusCorrect {
		return false
	}
	w.Status = StatusCorrect
	w.IsPerfect = false
	clear(e.counted)

	if next := e.Cursor(); next < len(e.words) && e.words[next].Status == StatusPending {
		e.words[next].Status = StatusCurrent
	}
	return true
}

// Accuracy returns the session accuracy in [0, 1]. In normal mode it is the
// fraction of words correct; in memory mode the denominator is the summed
// attempt count with a floor of one per word, so extra attempts can only hold
// or lower accuracy, never raise it.
func (e *Engine) Accuracy(memoryMode bool) float64 {
	if len(e.words) == 0 {
		return 0
	}

	correct := 0
	denom := 0
	for i := range e.words {
		if e.words[i].Status == StatusCorrect {
			correct++
		}
		denom += max(1, e.words[i].Attempts)
	}

	if !memoryMode {
		denom = len(e.words)
	}
	return float64(correct) / float64(denom)
}

// Reset reverts every word to its initial lifecycle state and clears the
// utterance dedupe set. Structural word data, duplicate tags included, is
// untouched.
func (e *Engine) Reset() {
	for i := range e.words {
		e.words[i].Status = StatusPending
		e.words[i].Attempts = 0
		e.words[i].IsPerfect = false
	}
	if len(e.words) > 0 {
		e.words[0].Status = StatusCurrent
	}
	clear(e.counted)
}

func (e *Engine) result(cursor int, matched []int, opts Options) Result {
	return Result{
		Cursor:    cursor,
		Matched:   matched,
		Completed: len(e.words) > 0 && cursor >= len(e.words),
		Accuracy:  e.Accuracy(opts.MemoryMode),
	}
}
