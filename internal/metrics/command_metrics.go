package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("arch-customizer-metrics")

// CommandMetrics provides metrics collection for command processing
type CommandMetrics struct {
	commandsCounter         metric.Int64Counter
	resolverDuration        metric.Float64Histogram
	undoCounter             metric.Int64Counter
	batchSizeHistogram      metric.Int64Histogram
	suggestionFallbacks     metric.Int64Counter
	sessionsEvictedCounter  metric.Int64Counter
	commandsInFlightCounter metric.Int64UpDownCounter
}

// NewCommandMetrics creates a new command metrics collector
func NewCommandMetrics() (*CommandMetrics, error) {
	commandsCounter, err := meter.Int64Counter(
		"arch_customizer.commands.processed",
		metric.WithDescription("Total number of commands processed, by status"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	resolverDuration, err := meter.Float64Histogram(
		"arch_customizer.resolver.duration",
		metric.WithDescription("Duration of intent resolver calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	undoCounter, err := meter.Int64Counter(
		"arch_customizer.undo",
		metric.WithDescription("Total number of undo requests, by outcome"),
		metric.WithUnit("{undo}"),
	)
	if err != nil {
		return nil, err
	}

	batchSizeHistogram, err := meter.Int64Histogram(
		"arch_customizer.batch.size",
		metric.WithDescription("Number of commands per batch"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	suggestionFallbacks, err := meter.Int64Counter(
		"arch_customizer.suggestions.fallback",
		metric.WithDescription("Total number of times the fallback suggestion table was served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	sessionsEvictedCounter, err := meter.Int64Counter(
		"arch_customizer.sessions.evicted",
		metric.WithDescription("Total number of idle sessions evicted"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	commandsInFlightCounter, err := meter.Int64UpDownCounter(
		"arch_customizer.commands.in_flight",
		metric.WithDescription("Number of commands currently waiting on the resolver"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	return &CommandMetrics{
		commandsCounter:         commandsCounter,
		resolverDuration:        resolverDuration,
		undoCounter:             undoCounter,
		batchSizeHistogram:      batchSizeHistogram,
		suggestionFallbacks:     suggestionFallbacks,
		sessionsEvictedCounter:  sessionsEvictedCounter,
		commandsInFlightCounter: commandsInFlightCounter,
	}, nil
}

// RecordResolveStarted marks a resolver call as in flight
func (cm *CommandMetrics) RecordResolveStarted(ctx context.Context) {
	cm.commandsInFlightCounter.Add(ctx, 1)
}

// RecordCommandApplied records a command whose result entered history
func (cm *CommandMetrics) RecordCommandApplied(ctx context.Context, duration time.Duration) {
	cm.commandsCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", "applied")),
	)
	cm.resolverDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("status", "applied")),
	)
	cm.commandsInFlightCounter.Add(ctx, -1)
}

// RecordCommandFailed records a command that left the session untouched.
// failureType is one of refused, timeout, cancelled, malformed, transport or rejected.
func (cm *CommandMetrics) RecordCommandFailed(ctx context.Context, failureType string, duration time.Duration) {
	cm.commandsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", "failed"),
			attribute.String("error.type", failureType),
		),
	)
	cm.resolverDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("status", "failed")),
	)
	cm.commandsInFlightCounter.Add(ctx, -1)
}

// RecordUndo records an undo request
func (cm *CommandMetrics) RecordUndo(ctx context.Context, undone bool) {
	outcome := "undone"
	if !undone {
		outcome = "nothing_to_undo"
	}
	cm.undoCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordBatch records the size of a batch
func (cm *CommandMetrics) RecordBatch(ctx context.Context, size int) {
	cm.batchSizeHistogram.Record(ctx, int64(size))
}

// RecordSuggestionFallback records that the fallback suggestion table was served
func (cm *CommandMetrics) RecordSuggestionFallback(ctx context.Context, reason string) {
	cm.suggestionFallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordEvictions records sessions removed by the janitor
func (cm *CommandMetrics) RecordEvictions(ctx context.Context, count int) {
	cm.sessionsEvictedCounter.Add(ctx, int64(count))
}
