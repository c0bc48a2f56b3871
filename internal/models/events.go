package models

import (
	"time"
)

// SessionEventType identifies what happened to a session
type SessionEventType string

const (
	EventCommandApplied SessionEventType = "command.applied"
	EventCommandFailed  SessionEventType = "command.failed"
	EventCommandUndone  SessionEventType = "command.undone"
	EventBatchCompleted SessionEventType = "batch.completed"
)

// SessionEvent is published by the engine after each state transition attempt
// and streamed to websocket subscribers of that session.
type SessionEvent struct {
	Type            SessionEventType `json:"type"`
	SessionID       string           `json:"sessionId"`
	Result          *CommandResult   `json:"result,omitempty"`
	Results         []CommandResult  `json:"results,omitempty"`
	CurrentDocument Document         `json:"currentDocument,omitempty"`
	HistoryLength   int              `json:"historyLength"`
	Timestamp       time.Time        `json:"timestamp"`
}
