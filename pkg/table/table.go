// Package table implements the observation table: an ordered collection of
// rows of tagged cells under a typed column schema. All pipeline stages
// derive new tables by value; a table handed to the engine is never
// mutated in place.
package table

import (
	"fmt"
	"strings"
)

// ColumnKind classifies a column's role in the pipeline.
type ColumnKind uint8

const (
	// ColCaseField is a categorical column identifying a reporting context
	// (period, source, region, custom case dimensions).
	ColCaseField ColumnKind = iota
	// ColComponentField is a categorical breakdown summed over during
	// aggregation.
	ColComponentField
	// ColVariable holds the reported quantity name.
	ColVariable
	// ColRefVariable holds the quantity the value is expressed relative to.
	ColRefVariable
	// ColValue holds the reported value.
	ColValue
	// ColRefValue holds the reference value.
	ColRefValue
	// ColUncertainty holds the reported uncertainty.
	ColUncertainty
	// ColUnit holds the value's unit expression.
	ColUnit
	// ColRefUnit holds the reference value's unit expression.
	ColRefUnit
	// ColComment is free text, never used in computation.
	ColComment
)

// Well-known column ids shared between the loader, the engine, and the
// definition registry.
const (
	ColIDVariable    = "variable"
	ColIDRefVariable = "reference_variable"
	ColIDValue       = "value"
	ColIDRefValue    = "reference_value"
	ColIDUncertainty = "uncertainty"
	ColIDUnit        = "unit"
	ColIDRefUnit     = "reference_unit"
	ColIDComment     = "comment"
)

// ComponentTotalToken is the reserved default marking a component column's
// collapsed total.
const ComponentTotalToken = "#"

// Column describes one table column.
type Column struct {
	ID   string
	Kind ColumnKind
}

// Row maps column ids to cells. Columns absent from the map read as Missing.
type Row map[string]Cell

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered column schema plus ordered rows.
type Table struct {
	cols []Column
	rows []Row
}

// New creates an empty table with the given column schema.
func New(cols []Column) *Table {
	return &Table{cols: append([]Column(nil), cols...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns a copy of the column schema.
func (t *Table) Columns() []Column { return append([]Column(nil), t.cols...) }

// ColumnIDs returns the column ids in schema order.
func (t *Table) ColumnIDs() []string {
	ids := make([]string, len(t.cols))
	for i, c := range t.cols {
		ids[i] = c.ID
	}
	return ids
}

// Column looks up a column by id.
func (t *Table) Column(id string) (Column, bool) {
	for _, c := range t.cols {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnsOfKind returns the ids of all columns of the given kind, in schema
// order.
func (t *Table) ColumnsOfKind(kind ColumnKind) []string {
	var ids []string
	for _, c := range t.cols {
		if c.Kind == kind {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Cell returns the cell at (row, column id); Missing if the column is not
// set on that row.
func (t *Table) Cell(row int, col string) Cell {
	return t.rows[row][col]
}

// SetCell overwrites one cell. The table must be a derived copy; stages
// clone before mutating.
func (t *Table) SetCell(row int, col string, c Cell) {
	t.rows[row][col] = c
}

// Row returns the row map itself; callers must not mutate it unless they
// own the table.
func (t *Table) Row(i int) Row { return t.rows[i] }

// AppendRow appends a row. Cells for unknown columns are ignored by
// serialisation but kept in the map.
func (t *Table) AppendRow(r Row) {
	t.rows = append(t.rows, r)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := New(t.cols)
	out.rows = make([]Row, len(t.rows))
	for i, r := range t.rows {
		out.rows[i] = r.Clone()
	}
	return out
}

// CloneEmpty returns a table with the same schema and no rows.
func (t *Table) CloneEmpty() *Table { return New(t.cols) }

// Subset returns a new table holding copies of the given rows, in the
// given order.
func (t *Table) Subset(rows []int) *Table {
	out := t.CloneEmpty()
	for _, i := range rows {
		out.AppendRow(t.rows[i].Clone())
	}
	return out
}

// InsertColumn adds a column at the given schema position, filling existing
// rows with the fill cell. Inserting a duplicate id is an error.
func (t *Table) InsertColumn(pos int, col Column, fill Cell) error {
	if _, ok := t.Column(col.ID); ok {
		return fmt.Errorf("column %q already exists", col.ID)
	}
	if pos < 0 || pos > len(t.cols) {
		pos = len(t.cols)
	}
	t.cols = append(t.cols[:pos], append([]Column{col}, t.cols[pos:]...)...)
	if fill.Kind() != KindMissing {
		for _, r := range t.rows {
			r[col.ID] = fill
		}
	}
	return nil
}

// DropColumn removes a column from the schema and from all rows.
func (t *Table) DropColumn(id string) {
	for i, c := range t.cols {
		if c.ID == id {
			t.cols = append(t.cols[:i], t.cols[i+1:]...)
			break
		}
	}
	for _, r := range t.rows {
		delete(r, id)
	}
}

// ReorderColumns rearranges the schema to the given id order. Ids not
// present in the table are skipped; columns not named keep their relative
// order after the named ones.
func (t *Table) ReorderColumns(ids []string) {
	named := make(map[string]bool, len(ids))
	var out []Column
	for _, id := range ids {
		if c, ok := t.Column(id); ok {
			out = append(out, c)
			named[id] = true
		}
	}
	for _, c := range t.cols {
		if !named[c.ID] {
			out = append(out, c)
		}
	}
	t.cols = out
}

// keySep separates cell renderings inside a group key. Unit separator, so
// that no realistic cell content collides.
const keySep = "\x1f"

// Key renders the given columns of a row into a grouping key.
func (t *Table) Key(row int, cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = t.rows[row][col].String()
	}
	return strings.Join(parts, keySep)
}

// Group is a set of row indices sharing one key, in first-appearance order.
type Group struct {
	Key  string
	Rows []int
}

// GroupBy partitions the rows by the given columns. Groups appear in
// first-appearance order so that downstream warning collection is
// deterministic.
func (t *Table) GroupBy(cols []string) []Group {
	index := make(map[string]int)
	var groups []Group
	for i := range t.rows {
		key := t.Key(i, cols)
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{Key: key})
		}
		groups[gi].Rows = append(groups[gi].Rows, i)
	}
	return groups
}

// GroupByExcept partitions rows by every column except the given ids.
func (t *Table) GroupByExcept(except ...string) []Group {
	skip := make(map[string]bool, len(except))
	for _, id := range except {
		skip[id] = true
	}
	var cols []string
	for _, c := range t.cols {
		if !skip[c.ID] {
			cols = append(cols, c.ID)
		}
	}
	return t.GroupBy(cols)
}

// DropSingularFields removes case-field columns on which every row agrees
// on a single concrete value. Returns the dropped ids.
func (t *Table) DropSingularFields() []string {
	var dropped []string
	for _, id := range t.ColumnsOfKind(ColCaseField) {
		if len(t.rows) == 0 {
			continue
		}
		first := t.rows[0][id]
		if !first.IsConcrete() {
			continue
		}
		singular := true
		for _, r := range t.rows[1:] {
			if !r[id].Equal(first) {
				singular = false
				break
			}
		}
		if singular {
			t.DropColumn(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}
