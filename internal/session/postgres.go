package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the store uses
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS architecture_sessions (
	session_id        TEXT PRIMARY KEY,
	current_document  JSONB NOT NULL,
	baseline_document JSONB NOT NULL,
	history           JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_active_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_architecture_sessions_last_active
	ON architecture_sessions (last_active_at);
`

// PostgresStore keeps sessions in a PostgreSQL table with JSONB columns
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a store on top of a pool, connection or transaction
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the sessions table when it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create architecture_sessions table: %w", err)
	}
	return nil
}

// GetOrCreate implements Store. Creation and the activity touch happen in one statement.
func (s *PostgresStore) GetOrCreate(ctx context.Context, sessionID string, initial models.Document) (*models.SessionState, error) {
	doc, err := encodeDocument(initial)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initial document: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO architecture_sessions (session_id, current_document, baseline_document, history, created_at, last_active_at)
		VALUES ($1, $2::jsonb, $2::jsonb, '[]'::jsonb, NOW(), NOW())
		ON CONFLICT (session_id) DO UPDATE SET last_active_at = NOW()
		RETURNING session_id, current_document, baseline_document, history, created_at, last_active_at
	`, sessionID, string(doc))

	state, err := scanPostgresState(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create session: %w", err)
	}
	return state, nil
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*models.SessionState, error) {
	row := s.db.QueryRow(ctx, `
		SELECT session_id, current_document, baseline_document, history, created_at, last_active_at
		FROM architecture_sessions
		WHERE session_id = $1
	`, sessionID)

	state, err := scanPostgresState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return state, nil
}

// Put implements Store
func (s *PostgresStore) Put(ctx context.Context, state *models.SessionState) error {
	enc, err := encodeState(state)
	if err != nil {
		return err
	}

	createdAt := state.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO architecture_sessions (session_id, current_document, baseline_document, history, created_at, last_active_at)
		VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			current_document = EXCLUDED.current_document,
			baseline_document = EXCLUDED.baseline_document,
			history = EXCLUDED.history,
			last_active_at = NOW()
	`, state.SessionID, string(enc.current), string(enc.baseline), string(enc.history), createdAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Evict implements Store
func (s *PostgresStore) Evict(ctx context.Context, idleBefore time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM architecture_sessions WHERE last_active_at < $1`, idleBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to evict sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanPostgresState(row pgx.Row) (*models.SessionState, error) {
	var (
		sessionID                  string
		current, baseline, history []byte
		createdAt, lastActiveAt    time.Time
	)
	if err := row.Scan(&sessionID, &current, &baseline, &history, &createdAt, &lastActiveAt); err != nil {
		return nil, err
	}

	state, err := decodeState(sessionID, current, baseline, history)
	if err != nil {
		return nil, err
	}
	state.CreatedAt = createdAt
	state.LastActiveAt = lastActiveAt
	return state, nil
}
