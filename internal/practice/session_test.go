package practice

import (
	"reflect"
	"testing"

	"github.com/msaudi/tasmee/internal/align"
	"github.com/msaudi/tasmee/internal/match"
)

func TestSession_StuckWordProtocol(t *testing.T) {
	t.Parallel()

	// Easy difficulty: threshold 2. Distinct wrong tokens so each final
	// mismatch counts as a fresh attempt.
	s := NewSession(WithMode(true, DifficultyEasy))
	s.LoadPassage("الْحَمْدُ")

	s.ApplyTranscript([]string{"قل"}, true)
	if _, ok := s.StuckTimerRemaining(); ok {
		t.Fatal("timer running after one attempt")
	}

	s.ApplyTranscript([]string{"سبحان"}, true)
	if remaining, ok := s.StuckTimerRemaining(); !ok || remaining != 5 {
		t.Fatalf("timer after threshold = (%d, %v), want (5, true)", remaining, ok)
	}

	snap := s.ApplyTranscript([]string{"استغفر"}, true)
	if got := snap.Words[0].HintsShown; got != 1 {
		t.Errorf("hints after third attempt = %d, want 1", got)
	}

	snap = s.ApplyTranscript([]string{"يسبح"}, true)
	if got := snap.Words[0].HintsShown; got != 2 {
		t.Errorf("hints after fourth attempt = %d, want 2", got)
	}

	snap = s.ApplyTranscript([]string{"الحمد"}, true)
	if !snap.Completed {
		t.Fatal("passage not completed")
	}
	w := snap.Words[0]
	if w.Status != align.StatusCorrect || w.IsPerfect || w.Attempts != 4 {
		t.Errorf("final word state = %+v, want correct, not perfect, 4 attempts", w)
	}
	if _, ok := s.StuckTimerRemaining(); ok {
		t.Error("timer survived the match")
	}
}

func TestSession_TimerExpiryShowsFirstHint(t *testing.T) {
	t.Parallel()

	s := NewSession(WithMode(true, DifficultyEasy))
	s.LoadPassage("الْحَمْدُ")
	s.ApplyTranscript([]string{"قل"}, true)
	s.ApplyTranscript([]string{"سبحان"}, true)

	var snap Snapshot
	for range 5 {
		snap = s.Tick()
	}
	if got := snap.Words[0].HintsShown; got != 1 {
		t.Errorf("hints after expiry = %d, want 1", got)
	}
	if _, ok := s.StuckTimerRemaining(); ok {
		t.Error("timer still running after expiry")
	}
	if s.Elapsed() != 5 {
		t.Errorf("elapsed = %d, want 5", s.Elapsed())
	}
}

func TestSession_ExtendStuckTimer(t *testing.T) {
	t.Parallel()

	s := NewSession(WithMode(true, DifficultyEasy))
	s.LoadPassage("الْحَمْدُ")
	s.ApplyTranscript([]string{"قل"}, true)
	s.ApplyTranscript([]string{"سبحان"}, true)

	s.ExtendStuckTimer()
	for range 5 {
		s.Tick()
	}
	if remaining, ok := s.StuckTimerRemaining(); !ok || remaining != 5 {
		t.Errorf("timer after extend and 5 ticks = (%d, %v), want (5, true)", remaining, ok)
	}
}

func TestSession_SkipStuckTimer(t *testing.T) {
	t.Parallel()

	s := NewSession(WithMode(true, DifficultyEasy))
	s.LoadPassage("الْحَمْدُ")
	s.ApplyTranscript([]string{"قل"}, true)
	s.ApplyTranscript([]string{"سبحان"}, true)

	s.SkipStuckTimer()
	if got := s.Snapshot().Words[0].HintsShown; got != 1 {
		t.Errorf("hints after skip = %d, want 1", got)
	}
	// Idempotent.
	s.SkipStuckTimer()
	if got := s.Snapshot().Words[0].HintsShown; got != 1 {
		t.Errorf("hints after second skip = %d, want 1", got)
	}
}

func TestSession_HardModeNeverHints(t *testing.T) {
	t.Parallel()

	s := NewSession(WithMode(true, DifficultyHard))
	s.LoadPassage("الْحَمْدُ")

	for _, tok := range []string{"قل", "سبحان", "استغفر", "يسبح", "تبارك", "اقرا"} {
		s.ApplyTranscript([]string{tok}, true)
	}
	if _, ok := s.StuckTimerRemaining(); ok {
		t.Error("timer running in hard mode")
	}
	if got := s.Snapshot().Words[0].HintsShown; got != 0 {
		t.Errorf("hints in hard mode = %d, want 0", got)
	}
}

func TestSession_RevealCurrentWord(t *testing.T) {
	t.Parallel()

	s := NewSession(WithMode(true, DifficultyEasy))
	s.LoadPassage("الْحَمْدُ لِلَّهِ")

	snap := s.RevealCurrentWord()
	w := snap.Words[0]
	if w.Status != align.StatusCorrect || w.IsPerfect {
		t.Errorf("revealed word state = %+v, want correct and not perfect", w)
	}
	if w.HintsShown != HintFullReveal || !w.Revealed {
		t.Errorf("revealed word hints = %d, revealed = %v", w.HintsShown, w.Revealed)
	}
	if snap.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", snap.Cursor)
	}

	snap = s.RevealCurrentWord()
	if !snap.Completed {
		t.Fatal("passage not completed after revealing both words")
	}
	if _, ok := s.Summary(); !ok {
		t.Error("summary missing after completion")
	}
}

func TestSession_MemoryModeHidesWords(t *testing.T) {
	t.Parallel()

	s := NewSession(WithMode(true, DifficultyMedium))
	snap := s.LoadPassage("بِسْمِ اللَّهِ")

	for _, w := range snap.Words {
		if w.Revealed {
			t.Errorf("word %d revealed at rest in memory mode", w.Word.Position)
		}
	}

	snap = s.ApplyTranscript([]string{"بسم"}, true)
	if !snap.Words[0].Revealed {
		t.Error("correct word not revealed")
	}
	if snap.Words[1].Revealed {
		t.Error("pending word revealed")
	}
}

func TestSession_NormalModeShowsWords(t *testing.T) {
	t.Parallel()

	s := NewSession()
	snap := s.LoadPassage("بِسْمِ اللَّهِ")
	for _, w := range snap.Words {
		if !w.Revealed {
			t.Errorf("word %d hidden outside memory mode", w.Word.Position)
		}
	}
}

func TestSession_SetModeResets(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.LoadPassage("اللَّهُ الصَّمَدُ اللَّهُ")
	s.ApplyTranscript([]string{"الله"}, true)

	if err := s.SetMode(true, DifficultyEasy); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	snap := s.Snapshot()
	if snap.Cursor != 0 {
		t.Errorf("cursor after mode toggle = %d, want 0", snap.Cursor)
	}
	for _, w := range snap.Words {
		if w.Attempts != 0 || w.HintsShown != 0 || w.Status == align.StatusCorrect {
			t.Errorf("word %d state survived reset: %+v", w.Word.Position, w)
		}
	}
	// Duplicate tags are structural and survive.
	if snap.Words[0].Word.DuplicateIndex != 1 || snap.Words[2].Word.DuplicateIndex != 2 {
		t.Error("duplicate tags lost across mode toggle")
	}
}

func TestSession_InvalidConfigRejected(t *testing.T) {
	t.Parallel()

	s := NewSession(WithStrictness(match.StrictnessStrict))
	s.LoadPassage("الْحَمْدُ")

	if err := s.SetStrictness("brutal"); err == nil {
		t.Error("invalid strictness accepted")
	}
	if got := s.Strictness(); got != match.StrictnessStrict {
		t.Errorf("strictness after rejected set = %s, want strict", got)
	}

	if err := s.SetMode(true, "impossible"); err == nil {
		t.Error("invalid difficulty accepted")
	}
	if s.MemoryMode() || s.Difficulty() != DifficultyMedium {
		t.Error("mode changed by rejected set")
	}
}

func TestSession_DuplicateWordsArePositional(t *testing.T) {
	t.Parallel()

	s := NewSession()
	snap := s.LoadPassage("قُلْ هُوَ اللَّهُ أَحَدٌ اللَّهُ الصَّمَدُ")

	dup := func(i int) (int, int) {
		w := snap.Words[i].Word
		return w.DuplicateIndex, w.DuplicateCount
	}
	if i, c := dup(2); i != 1 || c != 2 {
		t.Errorf("position 2 duplicate tag = (%d, %d), want (1, 2)", i, c)
	}
	if i, c := dup(4); i != 2 || c != 2 {
		t.Errorf("position 4 duplicate tag = (%d, %d), want (2, 2)", i, c)
	}

	// A token matching position 4's text does not satisfy position 4 while
	// the cursor is at 0.
	snap = s.ApplyTranscript([]string{"الله"}, true)
	if snap.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", snap.Cursor)
	}
	if snap.Words[4].Status == align.StatusCorrect {
		t.Error("later duplicate satisfied out of position")
	}
}

func TestSession_SummaryComputedOnce(t *testing.T) {
	t.Parallel()

	s := NewSession(WithMode(true, DifficultyEasy))
	s.LoadPassage("الْحَمْدُ")
	s.ApplyTranscript([]string{"قل"}, true)
	s.Tick()
	s.Tick()
	s.ApplyTranscript([]string{"الحمد"}, true)

	first, ok := s.Summary()
	if !ok {
		t.Fatal("summary missing after completion")
	}
	if first.TotalAttempts != 1 || first.ElapsedUnits != 2 || first.IsPerfectRun {
		t.Errorf("summary = %+v", first)
	}

	// Later calls return the same snapshot.
	s.ApplyTranscript([]string{"قل"}, true)
	s.Tick()
	second, _ := s.Summary()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("summary changed after completion: %+v != %+v", first, second)
	}
}

func TestSession_NoPassageIsNoOp(t *testing.T) {
	t.Parallel()

	s := NewSession()
	if snap := s.ApplyTranscript([]string{"الحمد"}, true); len(snap.Words) != 0 {
		t.Error("transcript produced words with no passage loaded")
	}
	s.Tick()
	s.RevealCurrentWord()
	if _, ok := s.Summary(); ok {
		t.Error("summary produced with no passage loaded")
	}
}
