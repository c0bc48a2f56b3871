package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/resolver"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/session"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/suggestion"
)

// fakeResolver understands a tiny command language:
//
//	set K=V   adds or replaces top-level key K with string V
//	drop K    removes top-level key K
//	refuse    business refusal
//	boom      transport failure
//	garbled   malformed output
//	quoted    malformed output whose message contains quotes
//	nodoc     success without an updated document
//	slow      blocks until the context is done
type fakeResolver struct {
	mu       sync.Mutex
	commands []string
	mutate   bool
	suggest  func() ([]models.Suggestion, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, command string, document models.Document) (*models.CommandResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()

	if f.mutate {
		// A misbehaving resolver scribbling on its input must not reach any caller
		document["scribbled"] = true
	}

	fields := strings.Fields(command)
	switch {
	case len(fields) == 2 && fields[0] == "set":
		kv := strings.SplitN(fields[1], "=", 2)
		updated := document.Clone()
		delete(updated, "scribbled")
		updated[kv[0]] = kv[1]
		return &models.CommandResult{
			Success:         true,
			ActionSummary:   models.Bilingual("Set "+kv[0], "تعيين "+kv[0]),
			Changes:         []models.Change{{Kind: models.ChangeModify, TargetKind: models.TargetField, Path: kv[0], After: kv[1]}},
			UpdatedDocument: updated,
			Explanation:     models.Bilingual("done", "تم"),
		}, nil
	case len(fields) == 2 && fields[0] == "drop":
		updated := document.Clone()
		delete(updated, "scribbled")
		delete(updated, fields[1])
		return &models.CommandResult{Success: true, UpdatedDocument: updated}, nil
	case command == "refuse":
		return &models.CommandResult{
			Success:         false,
			UpdatedDocument: models.Document{"should": "not leak"},
			Explanation:     models.Bilingual("ambiguous", "غامض"),
		}, nil
	case command == "boom":
		return nil, fmt.Errorf("%w: connection refused", resolver.ErrTransport)
	case command == "garbled":
		return nil, fmt.Errorf("%w: not json", resolver.ErrMalformedOutput)
	case command == "quoted":
		return nil, fmt.Errorf(`%w: unexpected token "}" near "name"`, resolver.ErrMalformedOutput)
	case command == "nodoc":
		return &models.CommandResult{Success: true}, nil
	case command == "slow":
		<-ctx.Done()
		return nil, fmt.Errorf("intent resolver request aborted: %w", ctx.Err())
	}
	return &models.CommandResult{Success: false}, nil
}

func (f *fakeResolver) Suggest(ctx context.Context, document models.Document) ([]models.Suggestion, error) {
	if f.suggest != nil {
		return f.suggest()
	}
	return nil, resolver.ErrTransport
}

func (f *fakeResolver) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type collectingPublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *collectingPublisher) Publish(event models.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *collectingPublisher) types() []models.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SessionEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// failingStore fails Put on demand
type failingStore struct {
	*session.MemoryStore
	failPut bool
}

func (s *failingStore) Put(ctx context.Context, state *models.SessionState) error {
	if s.failPut {
		return errors.New("disk full")
	}
	return s.MemoryStore.Put(ctx, state)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *session.MemoryStore, *fakeResolver) {
	t.Helper()
	store := session.NewMemoryStore()
	res := &fakeResolver{}
	return New(store, res, opts...), store, res
}

func snapshot(t *testing.T, store session.Store, sessionID string) *models.SessionState {
	t.Helper()
	state, err := store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	return state
}

func TestScenario_CommandUndoUndo(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t)

	result, err := eng.ProcessCommand(ctx, "s1", "set X=1", models.Document{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotEmpty(t, result.ID)
	assert.NotNil(t, result.AppliedAt)
	assert.Equal(t, "set X=1", result.Command)

	state := snapshot(t, store, "s1")
	assert.Len(t, state.History, 1)
	assert.True(t, state.CurrentDocument.Equal(models.Document{"X": "1"}))

	undo, err := eng.Undo(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, result.ID, undo.Undone.ID)
	assert.Equal(t, 0, undo.HistoryLength)
	assert.True(t, undo.CurrentDocument.Equal(models.Document{}))

	state = snapshot(t, store, "s1")
	assert.Empty(t, state.History)
	assert.True(t, state.CurrentDocument.Equal(models.Document{}))

	_, err = eng.Undo(ctx, "s1")
	assert.ErrorIs(t, err, ErrNothingToUndo)

	after := snapshot(t, store, "s1")
	assert.Empty(t, after.History)
	assert.True(t, after.CurrentDocument.Equal(models.Document{}))
}

func TestProcessCommand_NoPartialApplication(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		explanation string
	}{
		{"business_refusal", "refuse", "ambiguous"},
		{"transport_failure", "boom", "currently unavailable"},
		{"malformed_output", "garbled", "could not be understood"},
		{"success_without_document", "nodoc", "could not be understood"},
		{"unknown_command", "dance", "could not be applied"},
		{"timeout", "slow", "did not answer in time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			eng, store, _ := newTestEngine(t, WithResolveTimeout(30*time.Millisecond))

			_, err := eng.ProcessCommand(ctx, "s1", "set base=yes", models.Document{"name": "crm"})
			require.NoError(t, err)
			before := snapshot(t, store, "s1")

			caller := models.Document{"name": "crm", "base": "yes"}
			result, err := eng.ProcessCommand(ctx, "s1", tt.command, caller)
			require.NoError(t, err)

			assert.False(t, result.Success)
			assert.Empty(t, result.ID)
			assert.Nil(t, result.AppliedAt)
			assert.NotNil(t, result.Changes)
			assert.Contains(t, result.Explanation.En, tt.explanation)
			assert.NotEmpty(t, result.Explanation.Ar)
			assert.True(t, result.UpdatedDocument.Equal(caller), "failed results echo the caller's document")

			after := snapshot(t, store, "s1")
			assert.Equal(t, len(before.History), len(after.History))
			assert.True(t, before.CurrentDocument.Equal(after.CurrentDocument))
			assert.True(t, before.BaselineDocument.Equal(after.BaselineDocument))
		})
	}
}

func TestProcessCommand_SuccessSwapsDocumentAndGrowsHistory(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t)

	for i := 1; i <= 3; i++ {
		before, _ := store.Get(ctx, "s1")
		result, err := eng.ProcessCommand(ctx, "s1", fmt.Sprintf("set k%d=v", i), models.Document{"seed": "x"})
		require.NoError(t, err)
		require.True(t, result.Success)

		after := snapshot(t, store, "s1")
		prevLen := 0
		if before != nil {
			prevLen = len(before.History)
		}
		assert.Len(t, after.History, prevLen+1)
		assert.True(t, after.CurrentDocument.Equal(after.History[len(after.History)-1].UpdatedDocument))
	}
}

func TestProcessCommand_EmptyCommand(t *testing.T) {
	eng, store, res := newTestEngine(t)

	_, err := eng.ProcessCommand(context.Background(), "s1", "   \n", models.Document{})
	assert.ErrorIs(t, err, ErrEmptyCommand)
	assert.Empty(t, res.calls())
	assert.Equal(t, 0, store.Len())
}

func TestProcessCommand_StoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: session.NewMemoryStore()}
	eng := New(store, &fakeResolver{})

	_, err := eng.ProcessCommand(ctx, "s1", "set a=1", models.Document{})
	require.NoError(t, err)

	store.failPut = true
	result, err := eng.ProcessCommand(ctx, "s1", "set b=2", models.Document{"a": "1"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "disk full")

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, state.History, 1)
	assert.True(t, state.CurrentDocument.Equal(models.Document{"a": "1"}))
}

func TestProcessCommand_ResolverGetsACopy(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	res := &fakeResolver{mutate: true}
	eng := New(store, res)

	caller := models.Document{"name": "crm"}
	result, err := eng.ProcessCommand(ctx, "s1", "set a=1", caller)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.NotContains(t, caller, "scribbled")
	state := snapshot(t, store, "s1")
	assert.NotContains(t, state.BaselineDocument, "scribbled")
	assert.NotContains(t, state.CurrentDocument, "scribbled")

	// Mutating a returned result never reaches the store
	result.UpdatedDocument["later"] = true
	state = snapshot(t, store, "s1")
	assert.NotContains(t, state.CurrentDocument, "later")
	assert.NotContains(t, state.History[0].UpdatedDocument, "later")
}

func TestUndo_Linearity(t *testing.T) {
	const n = 4
	for k := 0; k <= n; k++ {
		t.Run(fmt.Sprintf("undo_%d_of_%d", k, n), func(t *testing.T) {
			ctx := context.Background()
			eng, store, _ := newTestEngine(t)

			produced := make([]models.Document, 0, n)
			doc := models.Document{"base": "true"}
			for i := 1; i <= n; i++ {
				result, err := eng.ProcessCommand(ctx, "s1", fmt.Sprintf("set step=%d", i), doc)
				require.NoError(t, err)
				require.True(t, result.Success)
				doc = result.UpdatedDocument
				produced = append(produced, doc)
			}

			for i := 0; i < k; i++ {
				_, err := eng.Undo(ctx, "s1")
				require.NoError(t, err)
			}

			state := snapshot(t, store, "s1")
			assert.Len(t, state.History, n-k)
			if k == n {
				assert.True(t, state.CurrentDocument.Equal(models.Document{"base": "true"}))
			} else {
				assert.True(t, state.CurrentDocument.Equal(produced[n-k-1]))
			}
		})
	}
}

func TestUndo_ThenCommandDiscardsFuture(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t)

	doc := models.Document{}
	for i := 1; i <= 3; i++ {
		result, err := eng.ProcessCommand(ctx, "s1", fmt.Sprintf("set c%d=x", i), doc)
		require.NoError(t, err)
		doc = result.UpdatedDocument
	}
	undone, err := eng.Undo(ctx, "s1")
	require.NoError(t, err)
	_, err = eng.Undo(ctx, "s1")
	require.NoError(t, err)

	_, err = eng.ProcessCommand(ctx, "s1", "set fresh=x", models.Document{"c1": "x"})
	require.NoError(t, err)

	state := snapshot(t, store, "s1")
	require.Len(t, state.History, 3-2+1)
	for _, entry := range state.History {
		assert.NotEqual(t, undone.Undone.ID, entry.ID)
	}
	assert.True(t, state.CurrentDocument.Equal(models.Document{"c1": "x", "fresh": "x"}))
}

func TestUndo_UnknownSession(t *testing.T) {
	eng, store, _ := newTestEngine(t)

	_, err := eng.Undo(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNothingToUndo)
	assert.Equal(t, 0, store.Len(), "undo must not create sessions")
}

func TestBatchCommands_MatchesSequentialProcessing(t *testing.T) {
	ctx := context.Background()
	commands := []string{"set a=1", "refuse", "set b=2", "boom", "set c=3"}
	d0 := models.Document{"name": "crm"}

	batchEngine, batchStore, _ := newTestEngine(t)
	results, err := batchEngine.BatchCommands(ctx, "s1", commands, d0)
	require.NoError(t, err)
	require.Len(t, results, len(commands))

	seqEngine, seqStore, _ := newTestEngine(t)
	doc := d0
	var seqResults []*models.CommandResult
	for _, cmd := range commands {
		result, err := seqEngine.ProcessCommand(ctx, "s1", cmd, doc)
		require.NoError(t, err)
		if result.Success {
			doc = result.UpdatedDocument
		}
		seqResults = append(seqResults, result)
	}

	for i := range commands {
		assert.Equal(t, seqResults[i].Success, results[i].Success, "command %d", i)
		assert.True(t, seqResults[i].UpdatedDocument.Equal(results[i].UpdatedDocument), "command %d", i)
	}

	batchState := snapshot(t, batchStore, "s1")
	seqState := snapshot(t, seqStore, "s1")
	assert.Equal(t, len(seqState.History), len(batchState.History))
	assert.True(t, seqState.CurrentDocument.Equal(batchState.CurrentDocument))
	assert.True(t, batchState.CurrentDocument.Equal(models.Document{"name": "crm", "a": "1", "b": "2", "c": "3"}))
}

func TestBatchCommands_EmptyEntriesSkipResolver(t *testing.T) {
	ctx := context.Background()
	eng, store, res := newTestEngine(t)

	results, err := eng.BatchCommands(ctx, "s1", []string{"", "set a=1", "   "}, models.Document{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Success)
	assert.Equal(t, "The command is empty.", results[0].Explanation.En)
	assert.True(t, results[1].Success)
	assert.False(t, results[2].Success)
	assert.True(t, results[2].UpdatedDocument.Equal(models.Document{"a": "1"}), "failures echo the chained document")
	assert.Equal(t, []string{"set a=1"}, res.calls())
	assert.Len(t, snapshot(t, store, "s1").History, 1)
}

func TestBatchCommands_StoreFailureReturnsPartialResults(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: session.NewMemoryStore()}
	eng := New(store, &fakeResolver{})

	_, err := store.GetOrCreate(ctx, "s1", models.Document{})
	require.NoError(t, err)
	store.failPut = true

	results, err := eng.BatchCommands(ctx, "s1", []string{"refuse", "set a=1", "set b=2"}, models.Document{})
	require.Error(t, err)
	assert.Len(t, results, 1)

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, state.History)
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t)

	seed := models.Document{"entities": map[string]interface{}{"user": map[string]interface{}{"id": "uuid"}}}
	_, err := eng.ProcessCommand(ctx, "a", "set owner=alice", seed)
	require.NoError(t, err)
	_, err = eng.ProcessCommand(ctx, "b", "refuse", seed)
	require.NoError(t, err)

	_, err = eng.ProcessCommand(ctx, "a", "drop entities", snapshot(t, store, "a").CurrentDocument)
	require.NoError(t, err)

	b := snapshot(t, store, "b")
	assert.Empty(t, b.History)
	assert.True(t, b.CurrentDocument.Equal(seed))
	assert.Contains(t, seed, "entities")

	history, err := eng.History(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = eng.History(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestConcurrentCommandsOnOneSession(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := eng.ProcessCommand(ctx, "shared", fmt.Sprintf("set w%d=x", i), models.Document{})
			assert.NoError(t, err)
			if i%4 == 0 {
				_, err := eng.Undo(ctx, "shared")
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	state := snapshot(t, store, "shared")
	assert.Len(t, state.History, workers-workers/4)
	assert.True(t, state.CurrentDocument.Equal(state.History[len(state.History)-1].UpdatedDocument))

	seen := map[string]bool{}
	for _, entry := range state.History {
		assert.False(t, seen[entry.ID], "duplicate history entry")
		seen[entry.ID] = true
	}
}

func TestDeepModification(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown_kind", func(t *testing.T) {
		eng, store, res := newTestEngine(t)
		_, err := eng.DeepModification(ctx, "s1", Modification{Kind: "teleport"}, models.Document{})
		assert.ErrorIs(t, err, ErrUnknownModification)
		assert.Empty(t, res.calls())
		assert.Equal(t, 0, store.Len())
	})

	t.Run("instruction_includes_target_and_sorted_options", func(t *testing.T) {
		eng, _, res := newTestEngine(t)
		mod := Modification{
			Kind:    ModificationSecure,
			Target:  "entities.payment",
			Options: map[string]interface{}{"level": "strict", "audit": "on"},
		}
		result, err := eng.DeepModification(ctx, "s1", mod, models.Document{})
		require.NoError(t, err)
		assert.False(t, result.Success)

		calls := res.calls()
		require.Len(t, calls, 1)
		assert.True(t, strings.HasPrefix(calls[0], "Harden the security"))
		assert.Contains(t, calls[0], "Limit the changes to: entities.payment.")
		assert.Contains(t, calls[0], "Options: audit=on, level=strict.")
	})

	t.Run("structured_target_and_options_render_as_json", func(t *testing.T) {
		mod := Modification{
			Kind:   ModificationNormalize,
			Target: map[string]interface{}{"entity": "User", "fields": []interface{}{"email", "phone"}},
			Options: map[string]interface{}{
				"depth":  json.Number("2"),
				"strict": true,
				"scope":  map[string]interface{}{"b": 1, "a": "x"},
			},
		}
		text, err := mod.Instruction()
		require.NoError(t, err)
		assert.Contains(t, text, `Limit the changes to: {"entity":"User","fields":["email","phone"]}.`)
		assert.Contains(t, text, `Options: depth=2, scope={"a":"x","b":1}, strict=true.`)
	})

	t.Run("blank_target_is_omitted", func(t *testing.T) {
		text, err := Modification{Kind: ModificationOptimize, Target: "  "}.Instruction()
		require.NoError(t, err)
		assert.NotContains(t, text, "Limit the changes to")
	})

	t.Run("every_kind_has_an_instruction", func(t *testing.T) {
		for _, kind := range ModificationKinds() {
			text, err := Modification{Kind: kind}.Instruction()
			require.NoError(t, err)
			assert.NotEmpty(t, text)
		}
	})
}

func TestDocumentCheck(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t, WithDocumentCheck(PreserveTopLevelKeys))

	seed := models.Document{"entities": map[string]interface{}{}, "apis": []interface{}{}}
	result, err := eng.ProcessCommand(ctx, "s1", "drop apis", seed)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Explanation.En, "overall structure")
	assert.Empty(t, snapshot(t, store, "s1").History)

	result, err = eng.ProcessCommand(ctx, "s1", "set version=2", seed)
	require.NoError(t, err)
	assert.True(t, result.Success)

	check, err := DocumentCheckByName(CheckNone)
	require.NoError(t, err)
	assert.Nil(t, check)
	_, err = DocumentCheckByName("strict")
	assert.Error(t, err)
}

func TestSuggestions(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback_is_deterministic", func(t *testing.T) {
		eng, store, _ := newTestEngine(t)
		first, degraded := eng.Suggestions(ctx, models.Document{"a": 1})
		require.True(t, degraded)
		for i := 0; i < 3; i++ {
			next, degraded := eng.Suggestions(ctx, models.Document{"i": i})
			assert.True(t, degraded)
			assert.Equal(t, first, next)
		}
		assert.Equal(t, suggestion.Fallback(), first)
		assert.Equal(t, 0, store.Len(), "suggestions are stateless")
	})

	t.Run("resolver_suggestions", func(t *testing.T) {
		store := session.NewMemoryStore()
		res := &fakeResolver{suggest: func() ([]models.Suggestion, error) {
			return []models.Suggestion{{ID: "x", CommandText: "set secure=yes"}}, nil
		}}
		eng := New(store, res)

		suggestions, degraded := eng.Suggestions(ctx, models.Document{})
		assert.False(t, degraded)
		require.Len(t, suggestions, 1)
		assert.Equal(t, "set secure=yes", suggestions[0].CommandText)
	})
}

func TestCurrentDocument(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)

	_, err := eng.CurrentDocument(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = eng.ProcessCommand(ctx, "s1", "set a=1", models.Document{"seed": "y"})
	require.NoError(t, err)

	view, err := eng.CurrentDocument(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.HistoryLength)
	assert.True(t, view.CurrentDocument.Equal(models.Document{"seed": "y", "a": "1"}))
	assert.True(t, view.BaselineDocument.Equal(models.Document{"seed": "y"}))
}

func TestEventsPublished(t *testing.T) {
	ctx := context.Background()
	publisher := &collectingPublisher{}
	eng, _, _ := newTestEngine(t, WithPublisher(publisher))

	_, err := eng.ProcessCommand(ctx, "s1", "set a=1", models.Document{})
	require.NoError(t, err)
	_, err = eng.ProcessCommand(ctx, "s1", "refuse", models.Document{})
	require.NoError(t, err)
	_, err = eng.Undo(ctx, "s1")
	require.NoError(t, err)
	_, err = eng.BatchCommands(ctx, "s1", []string{"set b=2"}, models.Document{})
	require.NoError(t, err)

	assert.Equal(t, []models.SessionEventType{
		models.EventCommandApplied,
		models.EventCommandFailed,
		models.EventCommandUndone,
		models.EventBatchCompleted,
	}, publisher.types())

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Equal(t, "s1", publisher.events[0].SessionID)
	assert.Equal(t, 1, publisher.events[0].HistoryLength)
	assert.Len(t, publisher.events[3].Results, 1)
}

func TestLockHonorsCancellation(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	release, err := eng.locks.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = eng.ProcessCommand(ctx, "s1", "set a=1", models.Document{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogLinesStayValidJSON(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})

	eng, _, _ := newTestEngine(t)
	result, err := eng.ProcessCommand(context.Background(), `tab "one"`, "quoted", models.Document{})
	require.NoError(t, err)
	assert.False(t, result.Success)

	_, err = eng.ProcessCommand(context.Background(), `tab "one"`, "set a=1", models.Document{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
	}
	assert.Contains(t, buf.String(), `unexpected token \"}\"`)
}
