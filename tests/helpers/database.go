package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/session"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	roles           TEXT[] NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(buildDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// buildDatabaseURL prefers DATABASE_URL and otherwise assembles one from POSTGRES_* variables
func buildDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		envOr("POSTGRES_USER", "postgres"),
		envOr("POSTGRES_PASSWORD", "postgres"),
		envOr("POSTGRES_HOST", "localhost"),
		envOr("POSTGRES_PORT", "5432"),
		envOr("POSTGRES_DB", "arch_customizer"),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestDatabase provides database utilities for testing
type TestDatabase struct {
	Pool *pgxpool.Pool
	ctx  context.Context
}

// NewTestDatabase connects to the test database and makes sure both the users
// and the sessions tables exist
func NewTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	pool, err := GetTestDatabasePool(ctx)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if _, err := pool.Exec(ctx, usersSchema); err != nil {
		pool.Close()
		t.Fatalf("Failed to create users table: %v", err)
	}
	if err := session.NewPostgresStore(pool).EnsureSchema(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to create sessions table: %v", err)
	}

	return &TestDatabase{
		Pool: pool,
		ctx:  ctx,
	}
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// BeginTransaction starts a new transaction for test isolation.
// Tests should use transaction rollback instead of deleting data.
func (db *TestDatabase) BeginTransaction(t *testing.T) (pgx.Tx, func()) {
	t.Helper()
	tx, err := db.Pool.Begin(db.ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	rollback := func() {
		if err := tx.Rollback(db.ctx); err != nil && err != pgx.ErrTxClosed {
			t.Logf("Warning: Failed to rollback transaction: %v", err)
		}
	}

	return tx, rollback
}

// CreateTestUser inserts an operator account inside tx and returns its id
func (db *TestDatabase) CreateTestUser(t *testing.T, tx pgx.Tx, email, password string, roles ...string) string {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if roles == nil {
		roles = []string{}
	}

	var userID string
	err = tx.QueryRow(db.ctx, `
		INSERT INTO users (id, name, email, hashed_password, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, uuid.New().String(), "Test User", email, string(hashed), roles).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID
}

// UniqueEmail returns an email address that will not collide across runs
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}
