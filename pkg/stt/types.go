// Package stt defines the transcript event types consumed from a speech
// recognizer. The recognizer itself is an external collaborator; tasmee only
// sees its stream of candidate transcripts.
package stt

import "time"

// Update is one transcript event. Interim updates carry a provisional,
// possibly-revised token list; a final update stabilizes the segment. The
// recognizer re-delivers a growing token list across interim updates and
// resets to a short one after a pause.
type Update struct {
	// Tokens is the candidate transcript, whitespace-segmented by the
	// recognizer.
	Tokens []string `json:"tokens"`

	// IsFinal marks a stabilized recognition segment.
	IsFinal bool `json:"is_final"`

	// Confidence is the recognizer's overall confidence in [0, 1], 0 when
	// the recognizer does not report one.
	Confidence float64 `json:"confidence,omitempty"`

	// Timestamp is when the recognizer emitted the event.
	Timestamp time.Time `json:"timestamp,omitzero"`
}
