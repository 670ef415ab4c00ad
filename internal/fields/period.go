package fields

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
	"github.com/PhilippVerpoort/posted-sub000/pkg/table"
)

// Mode controls how requested periods without an exact match are resolved.
type Mode uint8

const (
	// ModeNone behaves like a plain categorical filter.
	ModeNone Mode = iota
	// ModeInterpolate fills periods inside the known range linearly.
	ModeInterpolate
	// ModeExtrapolate uses the nearest known period outside the range.
	ModeExtrapolate
	// ModeInterpolateAndExtrapolate enables both.
	ModeInterpolateAndExtrapolate
)

// ParseMode parses a mode name from configuration.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "interpolate":
		return ModeInterpolate, nil
	case "extrapolate":
		return ModeExtrapolate, nil
	case "interpolate+extrapolate", "extrapolate+interpolate", "full":
		return ModeInterpolateAndExtrapolate, nil
	default:
		return ModeNone, fmt.Errorf("unknown period mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeInterpolate:
		return "interpolate"
	case ModeExtrapolate:
		return "extrapolate"
	case ModeInterpolateAndExtrapolate:
		return "interpolate+extrapolate"
	default:
		return "none"
	}
}

func (m Mode) interpolates() bool {
	return m == ModeInterpolate || m == ModeInterpolateAndExtrapolate
}

func (m Mode) extrapolates() bool {
	return m == ModeExtrapolate || m == ModeInterpolateAndExtrapolate
}

// PeriodField resolves requested periods by exact match, linear
// interpolation, and nearest-neighbour extrapolation inside groups that
// agree on every other categorical column.
type PeriodField struct {
	def registry.FieldDef
}

// ID returns the column id.
func (f *PeriodField) ID() string { return f.def.ID }

// SelectAndExpand implements Field with ModeNone resolution; the engine
// calls SelectPeriods directly to pass the mode.
func (f *PeriodField) SelectAndExpand(t *table.Table, requested []string, expandNotSpecified bool) (*table.Table, error) {
	periods, err := ParsePeriods(requested)
	if err != nil {
		return nil, err
	}
	return f.SelectPeriods(t, periods, ModeNone, expandNotSpecified)
}

// ParsePeriods parses requested period strings into numbers.
func ParsePeriods(requested []string) ([]float64, error) {
	out := make([]float64, 0, len(requested))
	for _, s := range requested {
		p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q", s)
		}
		out = append(out, p)
	}
	return out, nil
}

type knownPeriod struct {
	period float64
	row    int
}

// SelectPeriods resolves the requested periods within each group of rows
// that agree on every column other than the period, the value, and the
// value-adjacent columns. Periods that cannot be resolved under the mode
// are dropped from that group's output; this is not an error.
func (f *PeriodField) SelectPeriods(t *table.Table, requested []float64, mode Mode, expandNotSpecified bool) (*table.Table, error) {
	if len(requested) == 0 {
		requested = f.presentPeriods(t)
	}
	sorted := append([]float64(nil), requested...)
	sort.Float64s(sorted)

	groups := t.GroupBy(f.groupColumns(t))
	out := t.CloneEmpty()
	for _, g := range groups {
		f.resolveGroup(t, out, g.Rows, sorted, mode, expandNotSpecified)
	}
	return out, nil
}

// groupColumns returns every column id that identifies a period series:
// all columns except the period itself, the numeric value columns, and
// comments.
func (f *PeriodField) groupColumns(t *table.Table) []string {
	var cols []string
	for _, c := range t.Columns() {
		switch {
		case c.ID == f.def.ID:
		case c.Kind == table.ColValue, c.Kind == table.ColRefValue, c.Kind == table.ColUncertainty:
		case c.Kind == table.ColComment:
		default:
			cols = append(cols, c.ID)
		}
	}
	return cols
}

func (f *PeriodField) resolveGroup(t, out *table.Table, rows []int, requested []float64, mode Mode, expandNotSpecified bool) {
	var known []knownPeriod
	var anyPeriod []int // wildcard rows matching every requested period
	for _, i := range rows {
		cell := t.Cell(i, f.def.ID)
		switch cell.Kind() {
		case table.KindFloat:
			p, _ := cell.Num()
			known = append(known, knownPeriod{period: p, row: i})
		case table.KindWildcard:
			anyPeriod = append(anyPeriod, i)
		case table.KindNotSpecified, table.KindMissing:
			if expandNotSpecified {
				anyPeriod = append(anyPeriod, i)
			}
		}
	}
	sort.Slice(known, func(a, b int) bool { return known[a].period < known[b].period })

	for _, p := range requested {
		if len(anyPeriod) > 0 {
			for _, i := range anyPeriod {
				row := t.Row(i).Clone()
				row[f.def.ID] = table.Float(p)
				out.AppendRow(row)
			}
			continue
		}
		if len(known) == 0 {
			continue
		}
		f.resolvePeriod(t, out, known, p, mode)
	}
}

func (f *PeriodField) resolvePeriod(t, out *table.Table, known []knownPeriod, p float64, mode Mode) {
	// Exact match wins unconditionally; the value passes through without
	// any interpolation arithmetic.
	for _, k := range known {
		if k.period == p {
			out.AppendRow(t.Row(k.row).Clone())
			return
		}
	}

	lo, hi := -1, -1
	for i, k := range known {
		if k.period < p {
			lo = i
		} else if hi == -1 {
			hi = i
		}
	}

	switch {
	case lo == -1 || hi == -1:
		// Outside the known range: nearest neighbour, if allowed.
		if !mode.extrapolates() {
			return
		}
		nearest := known[0]
		if lo != -1 {
			nearest = known[len(known)-1]
		}
		row := t.Row(nearest.row).Clone()
		row[f.def.ID] = table.Float(p)
		out.AppendRow(row)
	default:
		if !mode.interpolates() {
			return
		}
		lower, upper := known[lo], known[hi]
		vLo := t.Cell(lower.row, table.ColIDValue).NumOrNaN()
		vHi := t.Cell(upper.row, table.ColIDValue).NumOrNaN()
		frac := (upper.period - p) / (upper.period - lower.period)
		v := vHi - frac*(vHi-vLo)
		row := t.Row(lower.row).Clone()
		row[f.def.ID] = table.Float(p)
		row[table.ColIDValue] = table.Float(v)
		out.AppendRow(row)
	}
}

// presentPeriods returns the distinct concrete periods in the table.
func (f *PeriodField) presentPeriods(t *table.Table) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for i := 0; i < t.Len(); i++ {
		if p, ok := t.Cell(i, f.def.ID).Num(); ok && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Float64s(out)
	return out
}
