package engine

import (
	"github.com/PhilippVerpoort/posted-sub000/internal/fields"
	"github.com/PhilippVerpoort/posted-sub000/internal/mapping"
	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// Select resolves field selections, runs period resolution, and applies
// the mapping pipeline. The input table is expected to be normalised.
// Configuration errors are returned; data-quality failures surface as NaN
// values plus the returned warnings.
func (e *Engine) Select(t *table.Table, opts SelectOptions) (*table.Table, mapping.Warnings, error) {
	out, warnings, err := e.selectRaw(t, opts)
	if err != nil {
		return nil, nil, err
	}
	e.finish(out, opts.DropSingular, opts.WithParent)
	return out, warnings, nil
}

// selectRaw is Select without the final column bookkeeping, so that
// Aggregate can defer it until after the reduction.
func (e *Engine) selectRaw(t *table.Table, opts SelectOptions) (*table.Table, mapping.Warnings, error) {
	if err := e.validateFields(t, opts.Fields); err != nil {
		return nil, nil, err
	}

	out := t.Clone()
	var err error
	for _, id := range out.ColumnsOfKind(table.ColCaseField) {
		def, ok := e.defs.Field(id)
		if !ok {
			def = registry.FieldDef{ID: id, Kind: registry.FieldCase}
		}
		switch f := fields.New(def).(type) {
		case *fields.PeriodField:
			out, err = f.SelectPeriods(out, opts.Periods, opts.PeriodMode, opts.ExpandNotSpecified)
		default:
			out, err = f.SelectAndExpand(out, opts.Fields[id], opts.ExpandNotSpecified)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if err := e.checkInvariants(out); err != nil {
		return nil, nil, err
	}

	warnings := e.pipeline.Run(out)
	for _, w := range warnings {
		e.logger.Warn("mapping warning", "rule", w.Rule, "message", w.Message, "rows", w.Rows)
	}
	return out, warnings, nil
}
