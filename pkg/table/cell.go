package table

import (
	"math"
	"strconv"
)

// CellKind discriminates the tagged cell representation.
// Wildcard and NotSpecified are kept distinct from Text so that field
// expansion never has to guess whether "*" is a literal value.
type CellKind uint8

const (
	// KindMissing marks an absent cell (empty in the source file).
	KindMissing CellKind = iota
	// KindFloat is a numeric cell.
	KindFloat
	// KindText is a concrete categorical or free-text cell.
	KindText
	// KindWildcard is the "*" marker: the row applies to all valid values.
	KindWildcard
	// KindNotSpecified is the "N/S" marker: the source did not report the
	// value; optionally expandable like a wildcard.
	KindNotSpecified
)

// WildcardToken and NotSpecifiedToken are the source-file spellings of the
// two special cell kinds.
const (
	WildcardToken     = "*"
	NotSpecifiedToken = "N/S"
)

// Cell is a single tagged table cell.
type Cell struct {
	kind CellKind
	num  float64
	str  string
}

// Float returns a numeric cell.
func Float(v float64) Cell { return Cell{kind: KindFloat, num: v} }

// Text returns a concrete text cell.
func Text(s string) Cell { return Cell{kind: KindText, str: s} }

// Missing returns an absent cell.
func Missing() Cell { return Cell{kind: KindMissing} }

// Wildcard returns a "*" cell.
func Wildcard() Cell { return Cell{kind: KindWildcard} }

// NotSpecified returns an "N/S" cell.
func NotSpecified() Cell { return Cell{kind: KindNotSpecified} }

// Kind returns the cell's kind tag.
func (c Cell) Kind() CellKind { return c.kind }

// IsMissing reports whether the cell is absent.
func (c Cell) IsMissing() bool { return c.kind == KindMissing }

// IsConcrete reports whether the cell holds an actual value, as opposed to
// a wildcard, not-specified, or missing marker.
func (c Cell) IsConcrete() bool { return c.kind == KindFloat || c.kind == KindText }

// Num returns the numeric value and whether the cell is numeric.
func (c Cell) Num() (float64, bool) {
	if c.kind != KindFloat {
		return math.NaN(), false
	}
	return c.num, true
}

// NumOrNaN returns the numeric value, or NaN for any non-numeric cell.
func (c Cell) NumOrNaN() float64 {
	if c.kind != KindFloat {
		return math.NaN()
	}
	return c.num
}

// Str returns the text value and whether the cell is textual.
func (c Cell) Str() (string, bool) {
	if c.kind != KindText {
		return "", false
	}
	return c.str, true
}

// String renders the cell the way the source file spells it.
func (c Cell) String() string {
	switch c.kind {
	case KindFloat:
		return strconv.FormatFloat(c.num, 'g', -1, 64)
	case KindText:
		return c.str
	case KindWildcard:
		return WildcardToken
	case KindNotSpecified:
		return NotSpecifiedToken
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and value.
// Two NaN floats compare equal so that grouping treats them as one value.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindFloat:
		return c.num == o.num || (math.IsNaN(c.num) && math.IsNaN(o.num))
	case KindText:
		return c.str == o.str
	default:
		return true
	}
}

// ParseCell interprets a raw source string for a column of the given kind.
// Empty strings become Missing; "*" and "N/S" markers are recognised on
// categorical field columns; numeric columns parse floats.
func ParseCell(raw string, kind ColumnKind) Cell {
	if raw == "" {
		return Missing()
	}
	switch kind {
	case ColValue, ColRefValue, ColUncertainty:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Missing()
		}
		return Float(f)
	case ColCaseField, ColComponentField:
		switch raw {
		case WildcardToken:
			return Wildcard()
		case NotSpecifiedToken:
			return NotSpecified()
		}
		// Period-style fields carry numbers; keep them numeric so that
		// interpolation does not have to re-parse.
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Float(f)
		}
		return Text(raw)
	default:
		return Text(raw)
	}
}
