package resolver

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

const localizedTextSchema = `{
	"type": "object",
	"properties": {
		"en": {"type": "string"},
		"ar": {"type": "string"}
	}
}`

var commandResultSchemaJSON = `{
	"type": "object",
	"required": ["success"],
	"properties": {
		"success": {"type": "boolean"},
		"actionSummary": ` + localizedTextSchema + `,
		"explanation": ` + localizedTextSchema + `,
		"updatedDocument": {"type": ["object", "null"]},
		"changes": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["kind", "targetKind", "path"],
				"properties": {
					"kind": {"enum": ["add", "remove", "modify", "rename"]},
					"targetKind": {"enum": ["field", "entity", "permission", "workflow", "api"]},
					"path": {"type": "string"},
					"description": ` + localizedTextSchema + `
				}
			}
		}
	}
}`

var suggestionsSchemaJSON = `{
	"type": "object",
	"required": ["suggestions"],
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["commandText"],
				"properties": {
					"id": {"type": "string"},
					"category": {"enum": ["security", "performance", "ux", "data-integrity", "best-practice"]},
					"priority": {"enum": ["high", "medium", "low"]},
					"title": ` + localizedTextSchema + `,
					"description": ` + localizedTextSchema + `,
					"commandText": {"type": "string", "minLength": 1},
					"autoApplicable": {"type": "boolean"}
				}
			}
		}
	}
}`

var (
	schemaOnce          sync.Once
	commandResultSchema *gojsonschema.Schema
	suggestionsSchema   *gojsonschema.Schema
	schemaErr           error
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		commandResultSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(commandResultSchemaJSON))
		if schemaErr != nil {
			return
		}
		suggestionsSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(suggestionsSchemaJSON))
	})
	return schemaErr
}

func validate(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrMalformedOutput, strings.Join(msgs, "; "))
	}
	return nil
}

// DecodeCommandResult validates raw resolver output and decodes it.
// A successful result must carry an updated document.
func DecodeCommandResult(raw []byte) (*models.CommandResult, error) {
	if err := loadSchemas(); err != nil {
		return nil, fmt.Errorf("failed to compile result schema: %w", err)
	}
	if err := validate(commandResultSchema, raw); err != nil {
		return nil, err
	}

	var result models.CommandResult
	if err := models.DecodeJSON(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if result.Success && result.UpdatedDocument == nil {
		return nil, fmt.Errorf("%w: successful result without updatedDocument", ErrMalformedOutput)
	}
	if result.Changes == nil {
		result.Changes = []models.Change{}
	}
	// Audit fields are owned by the engine
	result.ID = ""
	result.AppliedAt = nil
	return &result, nil
}

// DecodeSuggestions validates raw suggest output and decodes the list
func DecodeSuggestions(raw []byte) ([]models.Suggestion, error) {
	if err := loadSchemas(); err != nil {
		return nil, fmt.Errorf("failed to compile suggestions schema: %w", err)
	}
	if err := validate(suggestionsSchema, raw); err != nil {
		return nil, err
	}

	var payload struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if payload.Suggestions == nil {
		payload.Suggestions = []models.Suggestion{}
	}
	return payload.Suggestions, nil
}
