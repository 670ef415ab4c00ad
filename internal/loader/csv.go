// Package loader implements the tabular source I/O contract: reading raw
// observation rows from CSV files whose headers map 1:1 onto the table's
// columns, and serialising tables back in the same shape. Empty cells are
// absent values, "*" is the wildcard marker, "N/S" is not-specified.
//
// The column sets are dynamic (every dataset declares its own case
// fields), which rules out struct-tag-based CSV codecs; the stdlib reader
// is used directly.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// baseColumns maps the fixed column ids onto their kinds.
var baseColumns = map[string]table.ColumnKind{
	table.ColIDVariable:    table.ColVariable,
	table.ColIDRefVariable: table.ColRefVariable,
	table.ColIDValue:       table.ColValue,
	table.ColIDRefValue:    table.ColRefValue,
	table.ColIDUncertainty: table.ColUncertainty,
	table.ColIDUnit:        table.ColUnit,
	table.ColIDRefUnit:     table.ColRefUnit,
}

// ReadFile reads an observation table from a CSV file.
func ReadFile(path string, defs *registry.Registry) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	t, err := Read(f, defs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read reads an observation table from CSV data. Header names resolve
// against the fixed column ids first, then against the registry's field
// definitions; anything else is carried as a comment column.
func Read(r io.Reader, defs *registry.Registry) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]table.Column, len(header))
	for i, name := range header {
		cols[i] = table.Column{ID: name, Kind: columnKind(name, defs)}
	}

	t := table.New(cols)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(table.Row, len(cols))
		for i, c := range cols {
			if i >= len(record) {
				break
			}
			cell := table.ParseCell(record[i], c.Kind)
			if !cell.IsMissing() {
				row[c.ID] = cell
			}
		}
		t.AppendRow(row)
	}
	return t, nil
}

func columnKind(name string, defs *registry.Registry) table.ColumnKind {
	if kind, ok := baseColumns[name]; ok {
		return kind
	}
	if defs != nil {
		if f, ok := defs.Field(name); ok {
			return f.ColumnKind()
		}
	}
	return table.ColComment
}

// WriteFile serialises a table to a CSV file.
func WriteFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table file: %w", err)
	}
	defer f.Close()
	return Write(f, t)
}

// Write serialises a table as CSV in its column order. Missing cells
// serialise as empty strings, restoring the source shape.
func Write(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	ids := t.ColumnIDs()
	if err := cw.Write(ids); err != nil {
		return err
	}
	record := make([]string, len(ids))
	for i := 0; i < t.Len(); i++ {
		for j, id := range ids {
			record[j] = t.Cell(i, id).String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
