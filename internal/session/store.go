// Package session keeps per-session architecture state: the current document,
// the baseline it started from and the linear history of applied results.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// ErrSessionNotFound is returned by Get when no record exists for the id
var ErrSessionNotFound = errors.New("session not found")

// Store persists SessionState records. Every state handed in or out is a copy;
// no caller ever holds a live reference into the store.
type Store interface {
	// GetOrCreate returns the session, creating it from initial when absent.
	// initial is only consulted on creation.
	GetOrCreate(ctx context.Context, sessionID string, initial models.Document) (*models.SessionState, error)
	// Get returns the session or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*models.SessionState, error)
	// Put replaces the whole record atomically.
	Put(ctx context.Context, state *models.SessionState) error
	// Evict removes sessions whose last activity is before idleBefore and
	// returns how many were removed.
	Evict(ctx context.Context, idleBefore time.Time) (int, error)
}
