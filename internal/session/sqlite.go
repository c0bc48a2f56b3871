package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS architecture_sessions (
	session_id        TEXT PRIMARY KEY,
	current_document  TEXT NOT NULL,
	baseline_document TEXT NOT NULL,
	history           TEXT NOT NULL DEFAULT '[]',
	created_at        INTEGER NOT NULL,
	last_active_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_architecture_sessions_last_active
	ON architecture_sessions (last_active_at);
`

// SQLiteStore keeps sessions in a local SQLite file. Timestamps are unix nanoseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and initializes the schema
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetOrCreate implements Store
func (s *SQLiteStore) GetOrCreate(ctx context.Context, sessionID string, initial models.Document) (*models.SessionState, error) {
	doc, err := encodeDocument(initial)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initial document: %w", err)
	}

	now := s.now().UnixNano()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO architecture_sessions (session_id, current_document, baseline_document, history, created_at, last_active_at)
		VALUES (?, ?, ?, '[]', ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET last_active_at = excluded.last_active_at
		RETURNING session_id, current_document, baseline_document, history, created_at, last_active_at
	`, sessionID, string(doc), string(doc), now, now)

	state, err := scanSQLiteState(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create session: %w", err)
	}
	return state, nil
}

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*models.SessionState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, current_document, baseline_document, history, created_at, last_active_at
		FROM architecture_sessions
		WHERE session_id = ?
	`, sessionID)

	state, err := scanSQLiteState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return state, nil
}

// Put implements Store
func (s *SQLiteStore) Put(ctx context.Context, state *models.SessionState) error {
	enc, err := encodeState(state)
	if err != nil {
		return err
	}

	now := s.now()
	createdAt := state.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO architecture_sessions (session_id, current_document, baseline_document, history, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			current_document = excluded.current_document,
			baseline_document = excluded.baseline_document,
			history = excluded.history,
			last_active_at = excluded.last_active_at
	`, state.SessionID, string(enc.current), string(enc.baseline), string(enc.history), createdAt.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Evict implements Store
func (s *SQLiteStore) Evict(ctx context.Context, idleBefore time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM architecture_sessions WHERE last_active_at < ?`, idleBefore.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to evict sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count evicted sessions: %w", err)
	}
	return int(n), nil
}

func scanSQLiteState(row *sql.Row) (*models.SessionState, error) {
	var (
		sessionID                  string
		current, baseline, history string
		createdAt, lastActiveAt    int64
	)
	if err := row.Scan(&sessionID, &current, &baseline, &history, &createdAt, &lastActiveAt); err != nil {
		return nil, err
	}

	state, err := decodeState(sessionID, []byte(current), []byte(baseline), []byte(history))
	if err != nil {
		return nil, err
	}
	state.CreatedAt = time.Unix(0, createdAt)
	state.LastActiveAt = time.Unix(0, lastActiveAt)
	return state, nil
}
