package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// DocumentCheck inspects a proposed document against the one the command was
// resolved from. A non-nil error rejects the result without touching the session.
type DocumentCheck func(before, after models.Document) error

// Document check names accepted by configuration
const (
	CheckNone                 = "none"
	CheckPreserveTopLevelKeys = "preserve-top-level-keys"
)

// PreserveTopLevelKeys rejects documents that drop any top-level key of the input
func PreserveTopLevelKeys(before, after models.Document) error {
	var missing []string
	for key := range before {
		if _, ok := after[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("updated document drops top-level keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DocumentCheckByName resolves a configured check name. "none" and "" return nil.
func DocumentCheckByName(name string) (DocumentCheck, error) {
	switch name {
	case "", CheckNone:
		return nil, nil
	case CheckPreserveTopLevelKeys:
		return PreserveTopLevelKeys, nil
	default:
		return nil, fmt.Errorf("unknown document check: %s", name)
	}
}
