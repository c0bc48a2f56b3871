package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// runStoreContract exercises the behavior every Store backend must share
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get_missing_session", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("get_or_create_seeds_once", func(t *testing.T) {
		store := newStore(t)

		first, err := store.GetOrCreate(ctx, "s1", models.Document{"name": "crm"})
		require.NoError(t, err)
		assert.Equal(t, "s1", first.SessionID)
		assert.True(t, first.CurrentDocument.Equal(models.Document{"name": "crm"}))
		assert.True(t, first.BaselineDocument.Equal(models.Document{"name": "crm"}))
		assert.Empty(t, first.History)
		assert.False(t, first.CreatedAt.IsZero())

		second, err := store.GetOrCreate(ctx, "s1", models.Document{"name": "other"})
		require.NoError(t, err)
		assert.True(t, second.CurrentDocument.Equal(models.Document{"name": "crm"}), "initial is only used on creation")
	})

	t.Run("nil_initial_document", func(t *testing.T) {
		store := newStore(t)
		state, err := store.GetOrCreate(ctx, "empty", nil)
		require.NoError(t, err)
		assert.NotNil(t, state.CurrentDocument)
		assert.Empty(t, state.CurrentDocument)
	})

	t.Run("returned_state_is_a_copy", func(t *testing.T) {
		store := newStore(t)
		state, err := store.GetOrCreate(ctx, "s1", models.Document{"entities": map[string]interface{}{"user": "x"}})
		require.NoError(t, err)

		state.CurrentDocument["entities"].(map[string]interface{})["user"] = "mutated"
		state.BaselineDocument["extra"] = true
		state.History = append(state.History, models.CommandResult{ID: "ghost"})

		fresh, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "x", fresh.CurrentDocument["entities"].(map[string]interface{})["user"])
		assert.NotContains(t, fresh.BaselineDocument, "extra")
		assert.Empty(t, fresh.History)
	})

	t.Run("current_and_baseline_are_independent", func(t *testing.T) {
		store := newStore(t)
		state, err := store.GetOrCreate(ctx, "s1", models.Document{"entities": map[string]interface{}{}})
		require.NoError(t, err)

		state.CurrentDocument["entities"].(map[string]interface{})["order"] = "new"
		require.NoError(t, store.Put(ctx, state))

		fresh, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Contains(t, fresh.CurrentDocument["entities"], "order")
		assert.NotContains(t, fresh.BaselineDocument["entities"], "order")
	})

	t.Run("put_replaces_record", func(t *testing.T) {
		store := newStore(t)
		state, err := store.GetOrCreate(ctx, "s1", models.Document{})
		require.NoError(t, err)

		applied := time.Now().UTC()
		state.History = append(state.History, models.CommandResult{
			ID:              "r1",
			Command:         "add field X",
			Success:         true,
			Changes:         []models.Change{{Kind: models.ChangeAdd, TargetKind: models.TargetField, Path: "X"}},
			UpdatedDocument: models.Document{"X": float64(1)},
			AppliedAt:       &applied,
		})
		state.CurrentDocument = models.Document{"X": float64(1)}
		require.NoError(t, store.Put(ctx, state))

		fresh, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, fresh.History, 1)
		assert.Equal(t, "r1", fresh.History[0].ID)
		assert.Equal(t, "add field X", fresh.History[0].Command)
		assert.True(t, fresh.History[0].UpdatedDocument.Equal(models.Document{"X": 1}))
		assert.True(t, fresh.CurrentDocument.Equal(models.Document{"X": 1}))
		assert.True(t, fresh.BaselineDocument.Equal(models.Document{}))
	})

	t.Run("large_integers_round_trip", func(t *testing.T) {
		store := newStore(t)
		seed := models.Document{"id": json.Number("9007199254740993")}
		state, err := store.GetOrCreate(ctx, "s1", seed)
		require.NoError(t, err)

		state.CurrentDocument["next"] = json.Number("9007199254740995")
		require.NoError(t, store.Put(ctx, state))

		fresh, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		baseline, err := fresh.BaselineDocument.Canonical()
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":9007199254740993}`, string(baseline))
		current, err := fresh.CurrentDocument.Canonical()
		require.NoError(t, err)
		assert.Contains(t, string(current), `"next":9007199254740995`)
		assert.Contains(t, string(current), `"id":9007199254740993`)
	})

	t.Run("sessions_are_isolated", func(t *testing.T) {
		store := newStore(t)
		seed := models.Document{"entities": map[string]interface{}{"user": map[string]interface{}{}}}

		a, err := store.GetOrCreate(ctx, "a", seed)
		require.NoError(t, err)
		_, err = store.GetOrCreate(ctx, "b", seed)
		require.NoError(t, err)

		a.CurrentDocument["entities"].(map[string]interface{})["invoice"] = map[string]interface{}{}
		require.NoError(t, store.Put(ctx, a))

		b, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.True(t, b.CurrentDocument.Equal(seed))
		assert.NotContains(t, seed["entities"], "invoice")
	})

	t.Run("evict_idle_sessions", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetOrCreate(ctx, "old", models.Document{})
		require.NoError(t, err)

		evicted, err := store.Evict(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, evicted)

		evicted, err = store.Evict(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, evicted)

		_, err = store.Get(ctx, "old")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	state, err := store.GetOrCreate(ctx, "s1", models.Document{"name": "crm"})
	require.NoError(t, err)
	state.CurrentDocument["version"] = float64(2)
	require.NoError(t, store.Put(ctx, state))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	fresh, err := reopened.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), fresh.CurrentDocument["version"])
	assert.Equal(t, "crm", fresh.BaselineDocument["name"])
	assert.NotContains(t, fresh.BaselineDocument, "version")
}

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping PostgreSQL store tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	// Each case runs inside its own transaction that is rolled back afterwards
	runStoreContract(t, func(t *testing.T) Store {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := tx.Rollback(ctx); err != nil {
				t.Logf("Warning: Failed to rollback transaction: %v", err)
			}
		})

		store := NewPostgresStore(tx)
		require.NoError(t, store.EnsureSchema(ctx))
		_, err = tx.Exec(ctx, "DELETE FROM architecture_sessions")
		require.NoError(t, err)
		return store
	})
}

func TestMemoryStore_TouchesLastActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	_, err := store.GetOrCreate(ctx, "s1", models.Document{})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	state, err := store.GetOrCreate(ctx, "s1", models.Document{})
	require.NoError(t, err)
	assert.Equal(t, clock, state.LastActiveAt)
	assert.Equal(t, clock.Add(-time.Hour), state.CreatedAt)

	evicted, err := store.Evict(ctx, clock.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, evicted)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetOrCreate(ctx, "s1", models.Document{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}
