package session

import (
	"encoding/json"
	"fmt"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// encodedState is the column form shared by the SQL backends
type encodedState struct {
	current  []byte
	baseline []byte
	history  []byte
}

func encodeState(state *models.SessionState) (*encodedState, error) {
	current, err := encodeDocument(state.CurrentDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to encode current document: %w", err)
	}
	baseline, err := encodeDocument(state.BaselineDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to encode baseline document: %w", err)
	}
	history := state.History
	if history == nil {
		history = []models.CommandResult{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return &encodedState{current: current, baseline: baseline, history: historyJSON}, nil
}

func encodeDocument(doc models.Document) ([]byte, error) {
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}

func decodeState(sessionID string, current, baseline, history []byte) (*models.SessionState, error) {
	state := &models.SessionState{SessionID: sessionID}

	if err := models.DecodeJSON(current, &state.CurrentDocument); err != nil {
		return nil, fmt.Errorf("failed to decode current document: %w", err)
	}
	if err := models.DecodeJSON(baseline, &state.BaselineDocument); err != nil {
		return nil, fmt.Errorf("failed to decode baseline document: %w", err)
	}
	if len(history) > 0 {
		if err := models.DecodeJSON(history, &state.History); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
	}

	if state.CurrentDocument == nil {
		state.CurrentDocument = models.Document{}
	}
	if state.BaselineDocument == nil {
		state.BaselineDocument = models.Document{}
	}
	if state.History == nil {
		state.History = []models.CommandResult{}
	}
	return state, nil
}
