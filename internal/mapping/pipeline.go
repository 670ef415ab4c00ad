// Package mapping implements the variable mapping pipeline: an ordered
// chain of rewrite rules that convert reported-but-non-canonical variables
// (full-load hours, relative or specific fixed cost, inconsistently
// referenced activities) into canonical variables, consulting sibling rows
// of the same case group and converting units as needed.
package mapping

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// Context carries the read-only registries rules consult.
type Context struct {
	Defs *registry.Registry
}

// Rule is one mapping rule: a predicate declaring which rows it claims and
// a transform. Rules read sibling data from the frozen pre-pass snapshot
// and write only the variable, reference variable, reference unit, unit,
// and value of rows they claim; the row set itself is never changed.
type Rule interface {
	Name() string
	// Claims reports whether the rule rewrites this row.
	Claims(snapshot *table.Table, row int, cx Context) bool
	// Apply rewrites the claimed rows of one case group. group holds all
	// rows of the group, claimed the subset this rule claimed. Failures
	// must not raise: the rule sets NaN values and records a warning.
	Apply(snapshot, out *table.Table, group, claimed []int, cx Context, sink *Warnings)
}

// DefaultRules returns the packaged rule chain in its declared order. The
// pipeline is single-pass: a rule's output is never re-consumed by a later
// rule in the same pass, so chained derivations spanning two rules must
// already be canonical on input.
func DefaultRules() []Rule {
	return []Rule{
		&fullLoadHoursRule{},
		&relativeFixedCostRule{},
		&specificFixedCostRule{},
		&activityHarmonisationRule{},
	}
}

// Pipeline applies an ordered rule chain group by group.
type Pipeline struct {
	rules []Rule
	cx    Context
}

// NewPipeline builds a pipeline over the given registry.
func NewPipeline(defs *registry.Registry, rules []Rule) *Pipeline {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Pipeline{rules: rules, cx: Context{Defs: defs}}
}

// Run rewrites t in place, one case group at a time. Groups are
// independent and processed concurrently; warnings are merged in stable
// group order regardless of execution order. The returned warnings list
// the offending input rows of every rule that could not complete.
func (p *Pipeline) Run(t *table.Table) Warnings {
	snapshot := t.Clone()
	groups := t.GroupBy(t.ColumnsOfKind(table.ColCaseField))

	slots := make([]Warnings, len(groups))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for gi, g := range groups {
		gi, g := gi, g
		eg.Go(func() error {
			slots[gi] = p.runGroup(snapshot, t, g.Rows)
			return nil
		})
	}
	// Workers never return errors; failures become warnings.
	_ = eg.Wait()

	var all Warnings
	for _, ws := range slots {
		all.Merge(ws)
	}
	return all
}

// runGroup assigns each row to the first rule that claims it, then applies
// the rules in declared order. Claims are evaluated against the snapshot,
// so a rule's output cannot feed a later rule within the same pass.
func (p *Pipeline) runGroup(snapshot, out *table.Table, group []int) Warnings {
	var ws Warnings
	taken := make(map[int]bool, len(group))
	for _, rule := range p.rules {
		var claimed []int
		for _, i := range group {
			if !taken[i] && rule.Claims(snapshot, i, p.cx) {
				taken[i] = true
				claimed = append(claimed, i)
			}
		}
		if len(claimed) == 0 {
			continue
		}
		rule.Apply(snapshot, out, group, claimed, p.cx, &ws)
	}
	return ws
}

// fail marks the claimed rows as unusable and records one warning.
func fail(out *table.Table, sink *Warnings, rule string, rows []int, format string, args ...any) {
	for _, i := range rows {
		out.SetCell(i, table.ColIDValue, table.Float(math.NaN()))
	}
	sink.Addf(rule, rows, format, args...)
}
