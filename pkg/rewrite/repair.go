package rewrite

import (
	"github.com/kaptinlin/jsonrepair"
)

// Repairer attempts to turn malformed JSON text into valid JSON text.
// Implementations must be best-effort: on failure they return the input
// unchanged alongside the error, never panic.
type Repairer interface {
	Repair(text string) (string, error)
}

// JSONRepairer repairs common LLM output defects (trailing commas, missing
// quotes, truncation) using the jsonrepair library.
type JSONRepairer struct{}

// Repair implements Repairer. On failure the original text is returned so
// callers can fall back to identity.
func (JSONRepairer) Repair(text string) (string, error) {
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return text, err
	}
	return repaired, nil
}
