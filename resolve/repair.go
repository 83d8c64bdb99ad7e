package resolve

import (
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// repairJSON fixes the syntax errors LLMs routinely introduce —
// trailing commas, unquoted keys, single-quoted strings, an
// unterminated final object — before a second parse attempt. The
// teacher declares this dependency but never calls it; this is its
// first real caller.
func repairJSON(s string) (string, error) {
	fixed, err := jsonrepair.RepairJSON(s)
	if err != nil {
		return "", fmt.Errorf("resolve: repairing json: %w", err)
	}
	return fixed, nil
}
