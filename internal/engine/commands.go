package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/resolver"
)

var (
	refusedReason = models.Bilingual(
		"The command could not be applied to this architecture.",
		"تعذر تطبيق الأمر على هذه البنية.",
	)
	emptyCommandReason = models.Bilingual(
		"The command is empty.",
		"الأمر فارغ.",
	)
	rejectedReason = models.Bilingual(
		"The proposed change would alter the overall structure of the architecture and was not applied.",
		"التغيير المقترح سيغير البنية العامة للتصميم ولم يتم تطبيقه.",
	)
)

// ProcessCommand resolves one command against callerDocument and, on success,
// appends the result to the session history and makes its updated document current.
// Resolver failures come back as a result with Success=false and leave the session
// untouched. The error is non-nil only for store or lock failures.
func (e *Engine) ProcessCommand(ctx context.Context, sessionID, command string, callerDocument models.Document) (*models.CommandResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.process_command")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	command = resolver.NormalizeCommand(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	release, err := e.locks.Acquire(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	defer release()

	state, err := e.store.GetOrCreate(ctx, sessionID, callerDocument)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	result := e.resolveOne(ctx, command, callerDocument)
	span.SetAttributes(attribute.Bool("result.success", result.Success))

	if !result.Success {
		e.publish(models.EventCommandFailed, sessionID, func(ev *models.SessionEvent) {
			ev.Result = result.Clone()
			ev.HistoryLength = len(state.History)
		})
		return result, nil
	}

	state.History = append(state.History, *result.Clone())
	state.CurrentDocument = result.UpdatedDocument.Clone()
	if err := e.store.Put(ctx, state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Printf(`{"level":"info","message":"Command applied","session_id":%q,"result_id":%q,"changes":%d,"history_length":%d}`,
		sessionID, result.ID, len(result.Changes), len(state.History))

	e.publish(models.EventCommandApplied, sessionID, func(ev *models.SessionEvent) {
		ev.Result = result.Clone()
		ev.CurrentDocument = state.CurrentDocument.Clone()
		ev.HistoryLength = len(state.History)
	})
	return result, nil
}

// BatchCommands runs commands strictly in order under one session lock. Each
// command resolves against the document left by the last successful one; failed
// commands are reported and skipped for chaining. Every success is persisted
// before the next command starts. On a store failure the results gathered so far
// are returned together with the error.
func (e *Engine) BatchCommands(ctx context.Context, sessionID string, commands []string, callerDocument models.Document) ([]models.CommandResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.batch_commands")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("batch.size", len(commands)),
	)

	release, err := e.locks.Acquire(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	defer release()

	state, err := e.store.GetOrCreate(ctx, sessionID, callerDocument)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	e.recorder.RecordBatch(ctx, len(commands))

	working := callerDocument.Clone()
	results := make([]models.CommandResult, 0, len(commands))
	applied := 0

	for i, raw := range commands {
		command := resolver.NormalizeCommand(raw)
		if command == "" {
			results = append(results, *models.NewFailedResult(raw, working, emptyCommandReason))
			continue
		}

		result := e.resolveOne(ctx, command, working)
		if result.Success {
			state.History = append(state.History, *result.Clone())
			state.CurrentDocument = result.UpdatedDocument.Clone()
			if err := e.store.Put(ctx, state); err != nil {
				span.RecordError(err)
				return results, fmt.Errorf("failed to save session after command %d: %w", i+1, err)
			}
			working = result.UpdatedDocument.Clone()
			applied++
		}
		results = append(results, *result)
	}

	span.SetAttributes(attribute.Int("batch.applied", applied))
	log.Printf(`{"level":"info","message":"Batch completed","session_id":%q,"commands":%d,"applied":%d}`,
		sessionID, len(commands), applied)

	e.publish(models.EventBatchCompleted, sessionID, func(ev *models.SessionEvent) {
		ev.Results = make([]models.CommandResult, len(results))
		for i := range results {
			ev.Results[i] = *results[i].Clone()
		}
		ev.CurrentDocument = state.CurrentDocument.Clone()
		ev.HistoryLength = len(state.History)
	})
	return results, nil
}

// resolveOne asks the resolver for one command and turns every failure mode into
// a failed result. It never returns nil. base is not modified.
func (e *Engine) resolveOne(ctx context.Context, command string, base models.Document) *models.CommandResult {
	ctx, span := e.tracer.Start(ctx, "engine.resolve")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return models.NewFailedResult(command, base, resolver.FailureReason(err))
	}

	callCtx := ctx
	if e.resolveTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.resolveTimeout)
		defer cancel()
	}

	e.recorder.RecordResolveStarted(ctx)
	start := time.Now()
	proposed, err := e.resolver.Resolve(callCtx, command, base.Clone())
	duration := time.Since(start)

	if err == nil && proposed == nil {
		err = fmt.Errorf("%w: empty result", resolver.ErrMalformedOutput)
	}
	if err == nil && proposed.Success && proposed.UpdatedDocument == nil {
		err = fmt.Errorf("%w: successful result without updatedDocument", resolver.ErrMalformedOutput)
	}
	if err != nil {
		span.RecordError(err)
		failureType := resolver.FailureType(err)
		log.Printf(`{"level":"warn","message":"Command resolution failed","failure_type":%q,"error":%q}`, failureType, err.Error())
		e.recorder.RecordCommandFailed(ctx, failureType, duration)
		return models.NewFailedResult(command, base, resolver.FailureReason(err))
	}

	result := proposed.Clone()
	result.Command = command
	if result.Changes == nil {
		result.Changes = []models.Change{}
	}

	if !result.Success {
		// Refusals never carry a mutation back to the caller
		result.UpdatedDocument = base.Clone()
		if result.Explanation.IsZero() {
			result.Explanation = refusedReason
		}
		if result.ActionSummary.IsZero() {
			result.ActionSummary = models.NewFailedResult(command, nil, refusedReason).ActionSummary
		}
		e.recorder.RecordCommandFailed(ctx, resolver.FailureType(nil), duration)
		return result
	}

	if e.documentCheck != nil {
		if err := e.documentCheck(base, result.UpdatedDocument); err != nil {
			span.RecordError(err)
			log.Printf(`{"level":"warn","message":"Proposed document rejected","error":%q}`, err.Error())
			e.recorder.RecordCommandFailed(ctx, "rejected", duration)
			return models.NewFailedResult(command, base, rejectedReason)
		}
	}

	appliedAt := e.now().UTC()
	result.ID = uuid.New().String()
	result.AppliedAt = &appliedAt
	e.recorder.RecordCommandApplied(ctx, duration)
	return result
}
