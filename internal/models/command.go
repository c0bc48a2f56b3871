package models

import (
	"time"
)

// LocalizedText carries the same message in English and Arabic
type LocalizedText struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// Bilingual builds a LocalizedText
func Bilingual(en, ar string) LocalizedText {
	return LocalizedText{En: en, Ar: ar}
}

// IsZero reports whether both languages are empty
func (t LocalizedText) IsZero() bool {
	return t.En == "" && t.Ar == ""
}

// ChangeKind is the kind of edit a Change describes
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeRemove ChangeKind = "remove"
	ChangeModify ChangeKind = "modify"
	ChangeRename ChangeKind = "rename"
)

// TargetKind is the architectural element a Change touches
type TargetKind string

const (
	TargetField      TargetKind = "field"
	TargetEntity     TargetKind = "entity"
	TargetPermission TargetKind = "permission"
	TargetWorkflow   TargetKind = "workflow"
	TargetAPI        TargetKind = "api"
)

// Change is an auditable description of one atomic edit. It is never replayed;
// applying a CommandResult adopts its UpdatedDocument wholesale.
type Change struct {
	Kind        ChangeKind    `json:"kind"`
	TargetKind  TargetKind    `json:"targetKind"`
	Path        string        `json:"path"`
	Before      interface{}   `json:"before,omitempty"`
	After       interface{}   `json:"after,omitempty"`
	Description LocalizedText `json:"description"`
}

// CommandResult is the outcome of attempting one command and the unit of history.
// ID, Command and AppliedAt are stamped by the engine on applied results.
type CommandResult struct {
	ID              string        `json:"id,omitempty"`
	Command         string        `json:"command,omitempty"`
	Success         bool          `json:"success"`
	ActionSummary   LocalizedText `json:"actionSummary"`
	Changes         []Change      `json:"changes"`
	UpdatedDocument Document      `json:"updatedDocument"`
	Explanation     LocalizedText `json:"explanation"`
	AppliedAt       *time.Time    `json:"appliedAt,omitempty"`
}

// Clone returns a deep copy of the result
func (r *CommandResult) Clone() *CommandResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.UpdatedDocument != nil {
		out.UpdatedDocument = r.UpdatedDocument.Clone()
	}
	if r.Changes != nil {
		out.Changes = make([]Change, len(r.Changes))
		for i, c := range r.Changes {
			c.Before = cloneValue(c.Before)
			c.After = cloneValue(c.After)
			out.Changes[i] = c
		}
	}
	if r.AppliedAt != nil {
		at := *r.AppliedAt
		out.AppliedAt = &at
	}
	return &out
}

// NewFailedResult builds a failure result that leaves the caller's document as is
func NewFailedResult(command string, document Document, explanation LocalizedText) *CommandResult {
	return &CommandResult{
		Command: command,
		Success: false,
		ActionSummary: Bilingual(
			"Command was not applied",
			"لم يتم تطبيق الأمر",
		),
		Changes:         []Change{},
		UpdatedDocument: document.Clone(),
		Explanation:     explanation,
	}
}
