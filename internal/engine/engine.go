// Package engine composes the field model, the mapping pipeline, and the
// aggregation engine into the public normalise / select / aggregate
// operations, and manages the column bookkeeping around them.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/PhilippVerpoort/posted-sub000/internal/aggregate"
	"github.com/PhilippVerpoort/posted-sub000/internal/fields"
	"github.com/PhilippVerpoort/posted-sub000/internal/mapping"
	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// Config holds engine construction options.
type Config struct {
	// Registry is the definition registry; defaults to the packaged one.
	Registry *registry.Registry
	// Rules overrides the mapping rule chain; defaults to the packaged
	// chain in its declared order.
	Rules []mapping.Rule
	// Masks are database-supplied masks applied during every aggregation,
	// before any caller-supplied ones.
	Masks []aggregate.Mask
	// Logger is the structured logger (optional, discards if nil).
	Logger *slog.Logger
}

// Engine is a stateless orchestrator over an immutable registry. All
// operations derive new tables and never mutate their inputs.
type Engine struct {
	defs     *registry.Registry
	pipeline *mapping.Pipeline
	masks    []aggregate.Mask
	logger   *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	defs := cfg.Registry
	if defs == nil {
		defs = registry.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		defs:     defs,
		pipeline: mapping.NewPipeline(defs, cfg.Rules),
		masks:    cfg.Masks,
		logger:   logger,
	}
}

// Registry returns the engine's definition registry.
func (e *Engine) Registry() *registry.Registry { return e.defs }

// SelectOptions control field resolution in Select and Aggregate.
type SelectOptions struct {
	// Fields maps case-field column ids to the requested concrete values.
	// Fields not named select every value present.
	Fields map[string][]string
	// Periods are the requested periods; empty selects every period
	// present.
	Periods []float64
	// PeriodMode controls interpolation/extrapolation of missing periods.
	PeriodMode fields.Mode
	// ExpandNotSpecified treats "N/S" cells like wildcards.
	ExpandNotSpecified bool
	// DropSingular removes case-field columns on which all rows agree.
	DropSingular bool
	// WithParent prefixes variable names with a namespace; purely
	// cosmetic.
	WithParent string
}

// AggregateOptions control the two-stage reduction.
type AggregateOptions struct {
	SelectOptions
	// AggFields names the component and case fields to reduce over.
	AggFields []string
	// Masks are applied after the engine's database masks.
	Masks []aggregate.Mask
	// ListReferences appends one row per resolved reference variable at
	// value 1.0 instead of only keeping the reference-unit column.
	ListReferences bool
}

// validateFields checks that every requested field id names a case-field
// column of the table. These are configuration errors, raised immediately.
func (e *Engine) validateFields(t *table.Table, requested map[string][]string) error {
	for id := range requested {
		col, ok := t.Column(id)
		if !ok {
			return fmt.Errorf("invalid field %q: no such column", id)
		}
		if col.Kind != table.ColCaseField {
			return fmt.Errorf("invalid field %q: not a case field", id)
		}
	}
	return nil
}

// checkInvariants enforces the hard errors of the data model: duplicate
// (field-tuple, variable, reference variable) rows, and multiple reference
// variables for one variable within a case.
func (e *Engine) checkInvariants(t *table.Table) error {
	idCols := t.ColumnsOfKind(table.ColCaseField)
	idCols = append(idCols, t.ColumnsOfKind(table.ColComponentField)...)

	dupCols := append(append([]string(nil), idCols...), table.ColIDVariable, table.ColIDRefVariable)
	for _, g := range t.GroupBy(dupCols) {
		if len(g.Rows) > 1 {
			return fmt.Errorf("duplicate rows for variable %q in case %v",
				t.Cell(g.Rows[0], table.ColIDVariable).String(), g.Rows)
		}
	}

	refCols := append(append([]string(nil), t.ColumnsOfKind(table.ColCaseField)...), table.ColIDVariable)
	for _, g := range t.GroupBy(refCols) {
		first := t.Cell(g.Rows[0], table.ColIDRefVariable)
		for _, i := range g.Rows[1:] {
			if !t.Cell(i, table.ColIDRefVariable).Equal(first) {
				return fmt.Errorf("variable %q has multiple reference variables within one case",
					t.Cell(i, table.ColIDVariable).String())
			}
		}
	}
	return nil
}

// applyParent prefixes the variable column with a namespace.
func applyParent(t *table.Table, parent string) {
	if parent == "" {
		return
	}
	for i := 0; i < t.Len(); i++ {
		if v, ok := t.Cell(i, table.ColIDVariable).Str(); ok {
			t.SetCell(i, table.ColIDVariable, table.Text(parent+"|"+v))
		}
	}
}

// columnOrder is the canonical output column order: case fields in
// registry declaration order, remaining case fields, component fields,
// then the variable/value block.
func (e *Engine) columnOrder(t *table.Table) []string {
	var order []string
	for _, f := range e.defs.Fields() {
		if f.Kind == registry.FieldCase {
			order = append(order, f.ID)
		}
	}
	order = append(order, t.ColumnsOfKind(table.ColCaseField)...)
	order = append(order, t.ColumnsOfKind(table.ColComponentField)...)
	order = append(order,
		table.ColIDVariable, table.ColIDRefVariable,
		table.ColIDValue, table.ColIDUnit,
		table.ColIDRefValue, table.ColIDRefUnit,
		table.ColIDUncertainty)
	order = append(order, t.ColumnsOfKind(table.ColComment)...)
	return order
}

// finish applies the shared column bookkeeping of Select and Aggregate.
func (e *Engine) finish(t *table.Table, dropSingular bool, parent string) {
	applyParent(t, parent)
	if dropSingular {
		if dropped := t.DropSingularFields(); len(dropped) > 0 {
			e.logger.Debug("dropped singular fields", "fields", dropped)
		}
	}
	t.ReorderColumns(e.columnOrder(t))
}
