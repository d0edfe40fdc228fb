package practice

// maxStuckWords caps the stuck-word list in a summary.
const maxStuckWords = 5

// StuckWord records one word the reciter struggled with.
type StuckWord struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
	Attempts int    `json:"attempts"`
}

// SessionSummary is the read-only snapshot computed once when a passage
// completes. Never mutated afterwards.
type SessionSummary struct {
	TotalWords    int         `json:"total_words"`
	PerfectWords  int         `json:"perfect_words"`
	TotalAttempts int         `json:"total_attempts"`
	HintsUsed     int         `json:"hints_used"`
	StuckWords    []StuckWord `json:"stuck_words,omitempty"`
	Accuracy      float64     `json:"accuracy"`
	IsPerfectRun  bool        `json:"is_perfect_run"`
	ElapsedUnits  int         `json:"elapsed_units"`
}

// Summarize aggregates the completed word states into a summary. Stuck words
// are those with more than one attempt, capped to the first maxStuckWords by
// position.
func Summarize(words []Word, elapsedUnits int, accuracy float64) SessionSummary {
	sum := SessionSummary{
		TotalWords:   len(words),
		Accuracy:     accuracy,
		IsPerfectRun: len(words) > 0,
		ElapsedUnits: elapsedUnits,
	}

	for _, w := range words {
		sum.TotalAttempts += max(1, w.Attempts)
		if w.IsPerfect {
			sum.PerfectWords++
		} else {
			sum.IsPerfectRun = false
		}
		if w.HintsShown > 0 {
			sum.HintsUsed++
		}
		if w.Attempts > 1 && len(sum.StuckWords) < maxStuckWords {
			sum.StuckWords = append(sum.StuckWords, StuckWord{
				Position: w.Word.Position,
				Text:     w.Word.PlainText,
				Attempts: w.Attempts,
			})
		}
	}
	return sum
}
