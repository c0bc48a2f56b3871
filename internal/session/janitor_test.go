package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

type countingRecorder struct {
	total int
}

func (r *countingRecorder) RecordEvictions(ctx context.Context, count int) {
	r.total += count
}

func TestJanitor_Sweep(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	store.now = func() time.Time { return start }
	_, err := store.GetOrCreate(ctx, "idle", models.Document{})
	require.NoError(t, err)

	store.now = func() time.Time { return start.Add(50 * time.Minute) }
	_, err = store.GetOrCreate(ctx, "active", models.Document{})
	require.NoError(t, err)

	recorder := &countingRecorder{}
	janitor := NewJanitor(store, time.Hour, time.Minute, recorder)
	janitor.now = func() time.Time { return start.Add(90 * time.Minute) }

	evicted, err := janitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, recorder.total)

	_, err = store.Get(ctx, "idle")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, "active")
	assert.NoError(t, err)
}

func TestJanitor_DisabledWithoutTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.now = func() time.Time { return time.Unix(0, 0) }
	_, err := store.GetOrCreate(ctx, "ancient", models.Document{})
	require.NoError(t, err)

	janitor := NewJanitor(store, 0, time.Millisecond, nil)
	assert.False(t, janitor.Enabled())

	evicted, err := janitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, evicted)

	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled janitor should return immediately")
	}
	assert.Equal(t, 1, store.Len())
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	janitor := NewJanitor(store, time.Hour, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
