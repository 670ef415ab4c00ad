package mapping

import "fmt"

// Warning records one non-fatal mapping failure: the rule that failed, a
// human-readable message, and the offending row indices of the input
// table. Affected rows carry NaN values in the output.
type Warning struct {
	Rule    string
	Message string
	Rows    []int
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (rows %v)", w.Rule, w.Message, w.Rows)
}

// Warnings is an ordered warning collection. Order is deterministic:
// group order first, rule order within a group.
type Warnings []Warning

// Addf appends a formatted warning.
func (ws *Warnings) Addf(rule string, rows []int, format string, args ...any) {
	*ws = append(*ws, Warning{
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
		Rows:    rows,
	})
}

// Merge appends another collection.
func (ws *Warnings) Merge(other Warnings) {
	*ws = append(*ws, other...)
}
