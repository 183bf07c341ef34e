// Package catalogue is the built-in rule catalogue for the looked-after
// children return. Each reporting year contributes a delta; the first year
// is composed from an empty registry.
package catalogue

import (
	"context"
	"sort"

	"github.com/liamcoop/lacvalidate/dataset"
	"github.com/liamcoop/lacvalidate/rules"
	"github.com/liamcoop/lacvalidate/rulesets"
)

// Table names used by the catalogue.
const (
	Header   = "Header"
	Episodes = "Episodes"
	OC2      = "OC2"
)

// Deltas returns the per-year deltas in ascending year order.
func Deltas() []rules.YearDelta {
	return []rules.YearDelta{
		delta2023(),
		delta2024(),
	}
}

// NewManager composes the built-in catalogue with any extra deltas layered
// over it year by year.
func NewManager(extra ...rules.YearDelta) (*rulesets.Manager, error) {
	return rulesets.NewManager(nil, Merge(Deltas(), extra)...)
}

// Merge layers overlay onto base by year. Within a year the overlay's
// additions replace the base's and its deletions are added; a code the
// overlay adds is no longer deleted, and a code it deletes is no longer
// added. Years only in overlay are appended. The result is sorted by year.
func Merge(base, overlay []rules.YearDelta) []rules.YearDelta {
	byYear := make(map[int]rules.YearDelta, len(base)+len(overlay))
	for _, d := range base {
		byYear[d.Year] = mergeOne(byYear[d.Year], d)
	}
	for _, d := range overlay {
		byYear[d.Year] = mergeOne(byYear[d.Year], d)
	}

	out := make([]rules.YearDelta, 0, len(byYear))
	for _, d := range byYear {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func mergeOne(into, d rules.YearDelta) rules.YearDelta {
	merged := rules.YearDelta{
		Year:            d.Year,
		AddedOrModified: make(map[string]rules.RuleDefinition, len(into.AddedOrModified)+len(d.AddedOrModified)),
	}
	for code, def := range into.AddedOrModified {
		merged.AddedOrModified[code] = def
	}
	for code, def := range d.AddedOrModified {
		merged.AddedOrModified[code] = def
	}

	deleted := make(map[string]bool)
	for _, code := range into.Deleted {
		if _, readded := d.AddedOrModified[code]; !readded {
			deleted[code] = true
		}
	}
	for _, code := range d.Deleted {
		deleted[code] = true
		delete(merged.AddedOrModified, code)
	}
	for code := range deleted {
		merged.Deleted = append(merged.Deleted, code)
	}
	sort.Strings(merged.Deleted)
	return merged
}

// flagRows returns the positions in t for which bad reports true.
func flagRows(ctx context.Context, t *dataset.Table, bad func(i int) bool) ([]int, error) {
	var flagged []int
	for i := 0; i < t.Len(); i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if bad(i) {
			flagged = append(flagged, i)
		}
	}
	return flagged, nil
}

// tableOutcome runs bad over one table, declining when it is absent.
func tableOutcome(ctx context.Context, b *dataset.Bundle, table string, bad func(t *dataset.Table, i int) bool) (rules.Outcome, error) {
	t, ok := b.Table(table)
	if !ok {
		return nil, rules.NotApplicable("table %s not supplied", table)
	}
	flagged, err := flagRows(ctx, t, func(i int) bool { return bad(t, i) })
	if err != nil {
		return nil, err
	}
	if len(flagged) == 0 {
		return rules.Outcome{}, nil
	}
	return rules.Outcome{table: flagged}, nil
}

// mustExpression builds a catalogue expression rule. The catalogue is
// static, so a compile failure is a programming error.
func mustExpression(spec rules.ExpressionSpec) rules.RuleDefinition {
	d, err := rules.NewExpressionRule(spec)
	if err != nil {
		panic(err)
	}
	return d
}
