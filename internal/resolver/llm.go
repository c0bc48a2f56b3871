package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// ChatClient sends one system+user exchange to a language model and returns the reply text
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// LLMResolver resolves commands by prompting a language model directly
type LLMResolver struct {
	chat   ChatClient
	tracer trace.Tracer
}

// NewLLMResolver creates a resolver backed by the given chat client
func NewLLMResolver(chat ChatClient) *LLMResolver {
	return &LLMResolver{
		chat:   chat,
		tracer: otel.Tracer("intent-resolver-llm"),
	}
}

const resolveSystemPrompt = `You are an expert software architect editing a JSON "architecture" document
that describes entities, fields, permissions, workflows and APIs.
The user gives a command in Arabic, English or a mix of both.
Apply the command to the document and answer with ONE JSON object and nothing else:
{
  "success": true | false,
  "actionSummary": {"en": "...", "ar": "..."},
  "changes": [
    {"kind": "add|remove|modify|rename",
     "targetKind": "field|entity|permission|workflow|api",
     "path": "dot.separated.path",
     "before": <previous value, optional>,
     "after": <new value, optional>,
     "description": {"en": "...", "ar": "..."}}
  ],
  "updatedDocument": { the COMPLETE document after the change },
  "explanation": {"en": "...", "ar": "..."}
}
Keep the overall shape of the document. If the command is unclear or unsafe, answer with
"success": false, an empty "changes" list, the unchanged document and an explanation.`

const suggestSystemPrompt = `You are an expert software architect reviewing a JSON "architecture" document.
Propose up to 8 concrete improvements ordered from most to least important.
Answer with ONE JSON object and nothing else:
{
  "suggestions": [
    {"id": "short-kebab-id",
     "category": "security|performance|ux|data-integrity|best-practice",
     "priority": "high|medium|low",
     "title": {"en": "...", "ar": "..."},
     "description": {"en": "...", "ar": "..."},
     "commandText": "an instruction that can be sent back as a command",
     "autoApplicable": true | false}
  ]
}`

// Resolve prompts the model with the command and the document
func (r *LLMResolver) Resolve(ctx context.Context, command string, document models.Document) (*models.CommandResult, error) {
	ctx, span := r.tracer.Start(ctx, "intent_resolver_llm.resolve")
	defer span.End()

	docJSON, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	user := fmt.Sprintf("Current architecture document:\n%s\n\nCommand:\n%s", docJSON, command)
	reply, err := r.chat.Complete(ctx, resolveSystemPrompt, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	raw, err := ExtractJSONObject(reply)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := DecodeCommandResult(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("result.success", result.Success))
	return result, nil
}

// Suggest prompts the model for improvement suggestions
func (r *LLMResolver) Suggest(ctx context.Context, document models.Document) ([]models.Suggestion, error) {
	ctx, span := r.tracer.Start(ctx, "intent_resolver_llm.suggest")
	defer span.End()

	docJSON, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	reply, err := r.chat.Complete(ctx, suggestSystemPrompt, fmt.Sprintf("Architecture document:\n%s", docJSON))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	raw, err := ExtractJSONObject(reply)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return DecodeSuggestions(raw)
}

// ExtractJSONObject pulls the outermost JSON object out of a model reply,
// tolerating markdown code fences and surrounding prose.
func ExtractJSONObject(reply string) ([]byte, error) {
	text := strings.TrimSpace(reply)

	if idx := strings.Index(text, "```"); idx >= 0 {
		inner := text[idx+3:]
		inner = strings.TrimPrefix(inner, "json")
		if end := strings.Index(inner, "```"); end >= 0 {
			text = strings.TrimSpace(inner[:end])
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedOutput)
	}

	candidate := []byte(text[start : end+1])
	if !json.Valid(candidate) {
		return nil, fmt.Errorf("%w: reply is not valid JSON", ErrMalformedOutput)
	}
	return candidate, nil
}
