// Package engine applies natural-language commands to per-session architecture
// documents. It owns history, undo and the all-or-nothing application rule.
package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/resolver"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/session"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/suggestion"
)

var (
	// ErrNothingToUndo is returned by Undo when the session has no applied commands
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrUnknownModification is returned for a deep modification kind outside the fixed vocabulary
	ErrUnknownModification = errors.New("unknown modification kind")
	// ErrEmptyCommand is returned when a command is blank after normalization
	ErrEmptyCommand = errors.New("command must not be empty")
)

// EventPublisher receives every session state transition attempt
type EventPublisher interface {
	Publish(event models.SessionEvent)
}

// Recorder collects command metrics
type Recorder interface {
	RecordResolveStarted(ctx context.Context)
	RecordCommandApplied(ctx context.Context, duration time.Duration)
	RecordCommandFailed(ctx context.Context, failureType string, duration time.Duration)
	RecordUndo(ctx context.Context, undone bool)
	RecordBatch(ctx context.Context, size int)
}

// UndoResult is the outcome of a successful Undo
type UndoResult struct {
	Undone          models.CommandResult `json:"undone"`
	CurrentDocument models.Document      `json:"currentDocument"`
	HistoryLength   int                  `json:"historyLength"`
}

// DocumentView is a read-only snapshot of a session's documents
type DocumentView struct {
	CurrentDocument  models.Document `json:"currentDocument"`
	BaselineDocument models.Document `json:"baselineDocument"`
	HistoryLength    int             `json:"historyLength"`
	LastActiveAt     time.Time       `json:"lastActiveAt"`
}

// Engine is the customization engine
type Engine struct {
	store          session.Store
	resolver       resolver.Resolver
	suggestions    *suggestion.Generator
	locks          *session.KeyedMutex
	recorder       Recorder
	publisher      EventPublisher
	resolveTimeout time.Duration
	documentCheck  DocumentCheck
	tracer         trace.Tracer
	now            func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithResolveTimeout bounds every resolver call. Zero leaves the caller's deadline in charge.
func WithResolveTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.resolveTimeout = timeout }
}

// WithSuggestionGenerator replaces the default generator
func WithSuggestionGenerator(g *suggestion.Generator) Option {
	return func(e *Engine) { e.suggestions = g }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithPublisher sets the event publisher
func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithDocumentCheck installs a check every proposed document must pass before it is applied
func WithDocumentCheck(check DocumentCheck) Option {
	return func(e *Engine) { e.documentCheck = check }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given store and resolver
func New(store session.Store, res resolver.Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		resolver:  res,
		locks:     session.NewKeyedMutex(),
		recorder:  noopRecorder{},
		publisher: noopPublisher{},
		tracer:    otel.Tracer("customization-engine"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.suggestions == nil {
		e.suggestions = suggestion.NewGenerator(res, e.resolveTimeout, nil)
	}
	return e
}

func (e *Engine) publish(eventType models.SessionEventType, sessionID string, fill func(*models.SessionEvent)) {
	event := models.SessionEvent{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: e.now().UTC(),
	}
	if fill != nil {
		fill(&event)
	}
	e.publisher.Publish(event)
}

type noopRecorder struct{}

func (noopRecorder) RecordResolveStarted(context.Context)                       {}
func (noopRecorder) RecordCommandApplied(context.Context, time.Duration)        {}
func (noopRecorder) RecordCommandFailed(context.Context, string, time.Duration) {}
func (noopRecorder) RecordUndo(context.Context, bool)                           {}
func (noopRecorder) RecordBatch(context.Context, int)                           {}

type noopPublisher struct{}

func (noopPublisher) Publish(models.SessionEvent) {}
