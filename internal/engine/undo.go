package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/session"
)

// Undo removes the most recent history entry. The current document becomes the
// updated document of the new last entry, or the baseline when history is empty.
// There is no redo.
func (e *Engine) Undo(ctx context.Context, sessionID string) (*UndoResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.undo")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	release, err := e.locks.Acquire(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	defer release()

	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			e.recorder.RecordUndo(ctx, false)
			return nil, ErrNothingToUndo
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if len(state.History) == 0 {
		e.recorder.RecordUndo(ctx, false)
		return nil, ErrNothingToUndo
	}

	undone := state.History[len(state.History)-1]
	state.History = state.History[:len(state.History)-1]
	if last := state.LastApplied(); last != nil {
		state.CurrentDocument = last.UpdatedDocument.Clone()
	} else {
		state.CurrentDocument = state.BaselineDocument.Clone()
	}

	if err := e.store.Put(ctx, state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	e.recorder.RecordUndo(ctx, true)
	log.Printf(`{"level":"info","message":"Command undone","session_id":%q,"result_id":%q,"history_length":%d}`,
		sessionID, undone.ID, len(state.History))

	e.publish(models.EventCommandUndone, sessionID, func(ev *models.SessionEvent) {
		ev.Result = undone.Clone()
		ev.CurrentDocument = state.CurrentDocument.Clone()
		ev.HistoryLength = len(state.History)
	})

	return &UndoResult{
		Undone:          undone,
		CurrentDocument: state.CurrentDocument,
		HistoryLength:   len(state.History),
	}, nil
}

// History returns the applied results of a session in order. A session that does
// not exist has an empty history.
func (e *Engine) History(ctx context.Context, sessionID string) ([]models.CommandResult, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return []models.CommandResult{}, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return state.History, nil
}

// CurrentDocument returns the session's current and baseline documents.
// It returns session.ErrSessionNotFound for unknown sessions.
func (e *Engine) CurrentDocument(ctx context.Context, sessionID string) (*DocumentView, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &DocumentView{
		CurrentDocument:  state.CurrentDocument,
		BaselineDocument: state.BaselineDocument,
		HistoryLength:    len(state.History),
		LastActiveAt:     state.LastActiveAt,
	}, nil
}

// Suggestions proposes improvements for document without touching any session.
// degraded reports that the fixed fallback list was served.
func (e *Engine) Suggestions(ctx context.Context, document models.Document) ([]models.Suggestion, bool) {
	ctx, span := e.tracer.Start(ctx, "engine.suggestions")
	defer span.End()
	return e.suggestions.Generate(ctx, document)
}
