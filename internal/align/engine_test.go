package align

import (
	"testing"

	"github.com/msaudi/tasmee/internal/match"
	"github.com/msaudi/tasmee/pkg/quran"
)

func newTestEngine(t *testing.T, passage string) *Engine {
	t.Helper()
	seg := quran.Segment(passage)
	if len(seg.Words) == 0 {
		t.Fatalf("Segment(%q) yielded no words", passage)
	}
	return NewEngine(seg.Words)
}

func TestApply_FinalChunkMatchesAll(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "بِسْمِ اللَّهِ")
	opts := Options{Strictness: match.StrictnessMedium}

	res := e.Apply([]string{"بسم", "الله"}, true, opts)

	if !res.Completed {
		t.Fatal("passage not completed")
	}
	if res.Cursor != 2 {
		t.Errorf("cursor = %d, want 2", res.Cursor)
	}
	if res.Accuracy != 1 {
		t.Errorf("accuracy = %v, want 1", res.Accuracy)
	}
	for _, w := range e.Words() {
		if w.Status != StatusCorrect {
			t.Errorf("word %d status = %s, want correct", w.Word.Position, w.Status)
		}
		if !w.IsPerfect {
			t.Errorf("word %d not perfect", w.Word.Position)
		}
		if w.Attempts != 0 {
			t.Errorf("word %d attempts = %d, want 0", w.Word.Position, w.Attempts)
		}
	}
}

func TestApply_InterimThenFinal(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "الحمد لله")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	// Interim chunk matches the first word without counting anything.
	res := e.Apply([]string{"الحمد"}, false, opts)
	if res.Cursor != 1 {
		t.Fatalf("cursor after interim = %d, want 1", res.Cursor)
	}

	// The final chunk re-delivers the grown token list; the consumed prefix
	// must be skipped so word 0 is not re-processed.
	res = e.Apply([]string{"الحمد", "لله"}, true, opts)
	if !res.Completed {
		t.Fatal("passage not completed")
	}
	for _, w := range e.Words() {
		if w.Attempts != 0 {
			t.Errorf("word %d attempts = %d, want 0", w.Word.Position, w.Attempts)
		}
	}
}

func TestApply_InterimMismatchNeverCounts(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "الحمد")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	e.Apply([]string{"قل"}, false, opts)
	e.Apply([]string{"قل"}, false, opts)
	if got := e.Words()[0].Attempts; got != 0 {
		t.Errorf("attempts after interim mismatches = %d, want 0", got)
	}

	// The same (position, token) pair counts once on the final chunk, no
	// matter how often it is re-delivered.
	e.Apply([]string{"قل"}, true, opts)
	e.Apply([]string{"قل"}, true, opts)
	if got := e.Words()[0].Attempts; got != 1 {
		t.Errorf("attempts after repeated final mismatch = %d, want 1", got)
	}

	// A different token is a fresh attempt.
	e.Apply([]string{"سبحان"}, true, opts)
	if got := e.Words()[0].Attempts; got != 2 {
		t.Errorf("attempts after second distinct mismatch = %d, want 2", got)
	}
}

func TestApply_MismatchesDoNotCountOutsideMemoryMode(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "الحمد")
	opts := Options{Strictness: match.StrictnessMedium}

	e.Apply([]string{"قل"}, true, opts)
	if got := e.Words()[0].Attempts; got != 0 {
		t.Errorf("attempts = %d, want 0", got)
	}
}

func TestApply_ShortChunkAfterPause(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "قُلْ هُوَ اللَّهُ")
	opts := Options{Strictness: match.StrictnessMedium}

	res := e.Apply([]string{"قل", "هو"}, true, opts)
	if res.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", res.Cursor)
	}

	// A token list shorter than the cursor is a fresh utterance and is
	// matched against the current word from its start.
	res = e.Apply([]string{"الله"}, true, opts)
	if !res.Completed {
		t.Error("passage not completed by post-pause chunk")
	}
}

func TestApply_NoLookaheadSkip(t *testing.T) {
	t.Parallel()

	// A token matching a later word's text must not satisfy that word while
	// the cursor is behind it.
	e := newTestEngine(t, "قُلْ هُوَ اللَّهُ أَحَدٌ اللَّهُ الصَّمَدُ")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	res := e.Apply([]string{"الله"}, true, opts)
	if res.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", res.Cursor)
	}
	words := e.Words()
	if words[0].Attempts != 1 {
		t.Errorf("word 0 attempts = %d, want 1", words[0].Attempts)
	}
	for _, w := range words[1:] {
		if w.Status == StatusCorrect {
			t.Errorf("word %d marked correct by lookahead", w.Word.Position)
		}
	}
}

func TestApply_CursorMonotonic(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	updates := []struct {
		tokens []string
		final  bool
	}{
		{[]string{"بسم"}, false},
		{[]string{"بسم", "الله"}, true},
		{[]string{"قل"}, true},
		{[]string{}, true},
		{[]string{"الرحمن"}, false},
		{[]string{"الرحيم"}, true},
	}

	prev := e.Cursor()
	for i, u := range updates {
		res := e.Apply(u.tokens, u.final, opts)
		if res.Cursor < prev {
			t.Fatalf("update %d: cursor decreased from %d to %d", i, prev, res.Cursor)
		}
		prev = res.Cursor
	}
	if !e.Words()[3].IsPerfect {
		t.Error("final word not perfect despite first-try match")
	}
}

func TestApply_EmptyUpdateIsNoOp(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "الحمد لله")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	before := append([]WordState(nil), e.Words()...)
	e.Apply(nil, true, opts)
	e.Apply([]string{"", "  "}, true, opts)

	for i, w := range e.Words() {
		if w != before[i] {
			t.Errorf("word %d mutated by empty update: %+v != %+v", i, w, before[i])
		}
	}
}

func TestApply_CompletedPassageIsNoOp(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "الحمد")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	e.Apply([]string{"الحمد"}, true, opts)
	res := e.Apply([]string{"قل"}, true, opts)
	if !res.Completed {
		t.Error("completion flag lost")
	}
	if got := e.Words()[0].Attempts; got != 0 {
		t.Errorf("attempts = %d, want 0", got)
	}
}

func TestAccuracy_MemoryModeNonIncreasing(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "الحمد لله")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	e.Apply([]string{"الحمد"}, true, opts)

	prev := e.Accuracy(true)
	mistakes := []string{"قل", "سبحان", "استغفر"}
	for _, tok := range mistakes {
		e.Apply([]string{tok}, true, opts)
		acc := e.Accuracy(true)
		if acc < 0 || acc > 1 {
			t.Fatalf("accuracy %v out of [0, 1]", acc)
		}
		if acc > prev {
			t.Errorf("accuracy rose from %v to %v without a new match", prev, acc)
		}
		prev = acc
	}

	// Normal-mode accuracy ignores attempts entirely.
	if got := e.Accuracy(false); got != 0.5 {
		t.Errorf("normal-mode accuracy = %v, want 0.5", got)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "اللَّهُ الصَّمَدُ اللَّهُ")
	opts := Options{Strictness: match.StrictnessMedium, MemoryMode: true}

	e.Apply([]string{"الله", "قل"}, true, opts)
	e.Reset()

	words := e.Words()
	if words[0].Status != StatusCurrent {
		t.Errorf("word 0 status = %s, want current", words[0].Status)
	}
	for i, w := range words {
		if i > 0 && w.Status != StatusPending {
			t.Errorf("word %d status = %s, want pending", i, w.Status)
		}
		if w.Attempts != 0 || w.IsPerfect {
			t.Errorf("word %d session state not cleared: %+v", i, w)
		}
	}

	// Duplicate tags are structural and survive the reset.
	if words[0].Word.DuplicateIndex != 1 || words[2].Word.DuplicateIndex != 2 {
		t.Errorf("duplicate tags lost: %d, %d", words[0].Word.DuplicateIndex, words[2].Word.DuplicateIndex)
	}
}

func TestNewEngine_Empty(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	res := e.Apply([]string{"الحمد"}, true, Options{Strictness: match.StrictnessMedium})
	if res.Completed {
		t.Error("empty passage reported completed")
	}
	if res.Accuracy != 0 {
		t.Errorf("accuracy = %v, want 0", res.Accuracy)
	}
}
