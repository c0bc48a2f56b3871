package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// maxResponseBytes bounds how much of a resolver reply we read
const maxResponseBytes = 8 << 20

// HTTPResolver calls an intent resolver service over HTTP
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// resolveRequest is the body of POST /resolve
type resolveRequest struct {
	Command  string          `json:"command"`
	Document models.Document `json:"document"`
}

// suggestRequest is the body of POST /suggest
type suggestRequest struct {
	Document models.Document `json:"document"`
}

// NewHTTPResolver creates a resolver client for the service at baseURL.
// timeout bounds each HTTP round trip; callers usually set a tighter context deadline.
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	settings := gobreaker.Settings{
		Name:        "intent-resolver",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// Refusals and caller cancellations say nothing about resolver health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedOutput)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf(`{"level":"warn","message":"Circuit breaker state changed","breaker":%q,"from":%q,"to":%q}`, name, from, to)
		},
	}

	return &HTTPResolver{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer:  otel.Tracer("intent-resolver-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *HTTPResolver) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Resolve asks the service to turn the command into a CommandResult
func (c *HTTPResolver) Resolve(ctx context.Context, command string, document models.Document) (*models.CommandResult, error) {
	ctx, span := c.tracer.Start(ctx, "intent_resolver.resolve")
	defer span.End()

	span.SetAttributes(attribute.Int("command.length", len(command)))

	raw, err := c.execute(ctx, "/resolve", resolveRequest{Command: command, Document: document})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := DecodeCommandResult(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("result.success", result.Success),
		attribute.Int("result.changes", len(result.Changes)),
	)
	return result, nil
}

// Suggest asks the service for improvement suggestions
func (c *HTTPResolver) Suggest(ctx context.Context, document models.Document) ([]models.Suggestion, error) {
	ctx, span := c.tracer.Start(ctx, "intent_resolver.suggest")
	defer span.End()

	raw, err := c.execute(ctx, "/suggest", suggestRequest{Document: document})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	suggestions, err := DecodeSuggestions(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("suggestions.count", len(suggestions)))
	return suggestions, nil
}

// execute runs a POST through the circuit breaker and returns the raw body
func (c *HTTPResolver) execute(ctx context.Context, path string, body interface{}) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, path, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

// post performs the actual HTTP request
func (c *HTTPResolver) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	// Inject trace context
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("intent resolver request aborted: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: failed to make request: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: intent resolver returned status %d: %s", ErrTransport, resp.StatusCode, string(bodyBytes))
	}

	return bodyBytes, nil
}

// IsHealthy checks if the intent resolver service is healthy
func (c *HTTPResolver) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "intent_resolver.health_check")
	defer span.End()

	// Use circuit breaker state as a quick health indicator
	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		span.RecordError(err)
		return false
	}

	// Short timeout for health checks
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))

	return healthy
}
