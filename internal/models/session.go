package models

import (
	"time"
)

// SessionState is everything tracked for one session: the current document, the
// baseline captured at creation and the linear history of applied results.
type SessionState struct {
	SessionID        string          `json:"sessionId"`
	CurrentDocument  Document        `json:"currentDocument"`
	BaselineDocument Document        `json:"baselineDocument"`
	History          []CommandResult `json:"history"`
	CreatedAt        time.Time       `json:"createdAt"`
	LastActiveAt     time.Time       `json:"lastActiveAt"`
}

// NewSessionState seeds a session from the caller's document. Current and baseline
// are independent copies.
func NewSessionState(sessionID string, initial Document, now time.Time) *SessionState {
	return &SessionState{
		SessionID:        sessionID,
		CurrentDocument:  initial.Clone(),
		BaselineDocument: initial.Clone(),
		History:          []CommandResult{},
		CreatedAt:        now,
		LastActiveAt:     now,
	}
}

// Clone returns a deep copy of the state
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.CurrentDocument = s.CurrentDocument.Clone()
	out.BaselineDocument = s.BaselineDocument.Clone()
	out.History = make([]CommandResult, len(s.History))
	for i := range s.History {
		out.History[i] = *s.History[i].Clone()
	}
	return &out
}

// LastApplied returns the most recent history entry, or nil when history is empty
func (s *SessionState) LastApplied() *CommandResult {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}
