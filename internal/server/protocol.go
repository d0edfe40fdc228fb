package server

import (
	"github.com/msaudi/tasmee/internal/match"
	"github.com/msaudi/tasmee/internal/practice"
	"github.com/msaudi/tasmee/pkg/stt"
)

// Client message types.
const (
	MsgLoadPassage   = "load_passage"
	MsgTranscript    = "transcript"
	MsgSetStrictness = "set_strictness"
	MsgSetMode       = "set_mode"
	MsgReset         = "reset"
	MsgExtendTimer   = "extend_timer"
	MsgSkipTimer     = "skip_timer"
	MsgRevealWord    = "reveal_word"
)

// Server message types.
const (
	MsgState   = "state"
	MsgSummary = "summary"
	MsgError   = "error"
)

// ClientMessage is one command from the client. Type selects the operation;
// the remaining fields are read per type.
type ClientMessage struct {
	Type string `json:"type"`

	// Passage is the reference text for load_passage.
	Passage string `json:"passage,omitempty"`

	// Transcript is the recognizer event for transcript messages.
	Transcript *stt.Update `json:"transcript,omitempty"`

	// Strictness is read by set_strictness.
	Strictness match.Strictness `json:"strictness,omitempty"`

	// MemoryMode and Difficulty are read by set_mode.
	MemoryMode bool                `json:"memory_mode,omitempty"`
	Difficulty practice.Difficulty `json:"difficulty,omitempty"`
}

// WordView is the per-word state pushed to the client. Text carries exactly
// what the client may display: the full word when revealed, the hint prefix
// while hints are active, nothing while hidden.
type WordView struct {
	Position       int    `json:"position"`
	Text           string `json:"text"`
	Markup         string `json:"markup,omitempty"`
	Status         string `json:"status"`
	Attempts       int    `json:"attempts"`
	IsPerfect      bool   `json:"is_perfect"`
	HintsShown     int    `json:"hints_shown"`
	DuplicateIndex int    `json:"duplicate_index,omitempty"`
	DuplicateCount int    `json:"duplicate_count,omitempty"`
}

// MarkerView is a verse-end marker position pushed to the client.
type MarkerView struct {
	Label     string `json:"label"`
	Ayah      int    `json:"ayah,omitempty"`
	AfterWord int    `json:"after_word"`
}

// ServerMessage is one event pushed to the client.
type ServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`

	// State payload.
	Words          []WordView   `json:"words,omitempty"`
	Markers        []MarkerView `json:"markers,omitempty"`
	Cursor         int          `json:"cursor,omitempty"`
	Completed      bool         `json:"completed,omitempty"`
	Accuracy       float64      `json:"accuracy"`
	TimerRemaining *int         `json:"timer_remaining,omitempty"`

	// Summary payload.
	Summary *practice.SessionSummary `json:"summary,omitempty"`

	// Error payload.
	Error string `json:"error,omitempty"`
}

// stateMessage projects a session snapshot into the wire format.
func stateMessage(sessionID string, ses *practice.Session, snap practice.Snapshot) ServerMessage {
	msg := ServerMessage{
		Type:      MsgState,
		SessionID: sessionID,
		Cursor:    snap.Cursor,
		Completed: snap.Completed,
		Accuracy:  snap.Accuracy,
	}

	msg.Words = make([]WordView, len(snap.Words))
	for i, w := range snap.Words {
		v := WordView{
			Position:       w.Word.Position,
			Status:         string(w.Status),
			Attempts:       w.Attempts,
			IsPerfect:      w.IsPerfect,
			HintsShown:     w.HintsShown,
			DuplicateIndex: w.Word.DuplicateIndex,
			DuplicateCount: w.Word.DuplicateCount,
		}
		switch {
		case w.Revealed:
			v.Text = w.Word.PlainText
			v.Markup = w.Word.MarkupText
		default:
			v.Text = hintPrefix(w.Word.PlainText, w.HintsShown)
		}
		msg.Words[i] = v
	}

	msg.Markers = make([]MarkerView, len(snap.Markers))
	for i, m := range snap.Markers {
		msg.Markers[i] = MarkerView{Label: m.Label, Ayah: m.Ayah, AfterWord: m.AfterWord}
	}

	if remaining, ok := ses.StuckTimerRemaining(); ok {
		msg.TimerRemaining = &remaining
	}
	return msg
}

// hintPrefix returns the first hints letters of text, the whole text at the
// full-reveal level, and "" when no hints are active.
func hintPrefix(text string, hints int) string {
	if hints <= 0 {
		return ""
	}
	if hints >= practice.HintFullReveal {
		return text
	}
	runes := []rune(text)
	if hints > len(runes) {
		hints = len(runes)
	}
	return string(runes[:hints])
}

func errorMessage(sessionID, text string) ServerMessage {
	return ServerMessage{Type: MsgError, SessionID: sessionID, Error: text}
}
