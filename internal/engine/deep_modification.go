package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// ModificationKind names a whole-document improvement pass
type ModificationKind string

const (
	ModificationRestructure ModificationKind = "restructure"
	ModificationOptimize    ModificationKind = "optimize"
	ModificationSecure      ModificationKind = "secure"
	ModificationNormalize   ModificationKind = "normalize"
	ModificationDenormalize ModificationKind = "denormalize"
)

var modificationInstructions = map[ModificationKind]string{
	ModificationRestructure: "Restructure the architecture for clarity: group related entities, split oversized entities and make every relationship explicit.",
	ModificationOptimize:    "Optimize the architecture for performance: add indexes on frequently queried fields, remove redundant fields and simplify expensive relationships.",
	ModificationSecure:      "Harden the security of the architecture: apply least-privilege permissions, protect sensitive fields and require authentication on every API.",
	ModificationNormalize:   "Normalize the data model: remove duplicated data by extracting shared values into their own entities connected by references.",
	ModificationDenormalize: "Denormalize the data model for read performance: embed frequently joined data directly in the entities that read it.",
}

// Modification describes a deep modification request. Target and Options are
// free-form JSON values handed to the resolver as part of the instruction.
type Modification struct {
	Kind    ModificationKind       `json:"kind"`
	Target  interface{}            `json:"target,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// ModificationKinds lists the supported kinds in a stable order
func ModificationKinds() []ModificationKind {
	return []ModificationKind{
		ModificationRestructure,
		ModificationOptimize,
		ModificationSecure,
		ModificationNormalize,
		ModificationDenormalize,
	}
}

// Instruction builds the command text for the modification
func (m Modification) Instruction() (string, error) {
	base, ok := modificationInstructions[m.Kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModification, m.Kind)
	}

	var b strings.Builder
	b.WriteString(base)
	if target := renderValue(m.Target); target != "" {
		fmt.Fprintf(&b, " Limit the changes to: %s.", target)
	}
	if len(m.Options) > 0 {
		keys := make([]string, 0, len(m.Options))
		for k := range m.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + renderValue(m.Options[k])
		}
		fmt.Fprintf(&b, " Options: %s.", strings.Join(pairs, ", "))
	}
	return b.String(), nil
}

// renderValue writes strings as they are and any other value as compact JSON
// with sorted object keys. nil renders as "".
func renderValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// DeepModification synthesizes the canned instruction for mod and runs it through ProcessCommand
func (e *Engine) DeepModification(ctx context.Context, sessionID string, mod Modification, callerDocument models.Document) (*models.CommandResult, error) {
	command, err := mod.Instruction()
	if err != nil {
		return nil, err
	}
	return e.ProcessCommand(ctx, sessionID, command, callerDocument)
}
