// Package suggestion proposes improvement commands for an architecture document
// and degrades to a fixed table when the reasoning service cannot answer.
package suggestion

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/resolver"
)

// Source is the part of the resolver the generator needs
type Source interface {
	Suggest(ctx context.Context, document models.Document) ([]models.Suggestion, error)
}

// FallbackRecorder is notified every time the fixed table is served
type FallbackRecorder interface {
	RecordSuggestionFallback(ctx context.Context, reason string)
}

// Generator wraps the resolver's Suggest mode with a timeout and a fallback
type Generator struct {
	source   Source
	timeout  time.Duration
	recorder FallbackRecorder
	tracer   trace.Tracer
}

// NewGenerator creates a generator. A non-positive timeout leaves the caller's
// deadline in charge.
func NewGenerator(source Source, timeout time.Duration, recorder FallbackRecorder) *Generator {
	return &Generator{
		source:   source,
		timeout:  timeout,
		recorder: recorder,
		tracer:   otel.Tracer("suggestion-generator"),
	}
}

// Generate returns suggestions for the document. degraded is true when the fixed
// fallback table was served instead of resolver output. It never fails.
func (g *Generator) Generate(ctx context.Context, document models.Document) ([]models.Suggestion, bool) {
	ctx, span := g.tracer.Start(ctx, "suggestion.generate")
	defer span.End()

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	suggestions, err := g.source.Suggest(callCtx, document.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("suggestions.degraded", true))
		log.Printf(`{"level":"warn","message":"Serving fallback suggestions","error":%q}`, err.Error())
		if g.recorder != nil {
			g.recorder.RecordSuggestionFallback(ctx, resolver.FailureType(err))
		}
		return Fallback(), true
	}

	out := make([]models.Suggestion, len(suggestions))
	for i, s := range suggestions {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		out[i] = s
	}

	span.SetAttributes(
		attribute.Bool("suggestions.degraded", false),
		attribute.Int("suggestions.count", len(out)),
	)
	return out, false
}
