package rules

// YearDelta derives one reporting year's ruleset from the previous year's.
// Deleting a code that is absent is a no-op, so a delta can be re-applied
// while a year is being authored.
type YearDelta struct {
	Year            int
	Deleted         []string
	AddedOrModified map[string]RuleDefinition
}

// NewYearDelta keys added by their codes. A later definition with the same
// code replaces an earlier one.
func NewYearDelta(year int, deleted []string, added ...RuleDefinition) YearDelta {
	m := make(map[string]RuleDefinition, len(added))
	for _, d := range added {
		m[d.Code] = d
	}
	return YearDelta{Year: year, Deleted: deleted, AddedOrModified: m}
}

// Clone returns a copy of d whose slices and map are not shared with d.
func (d YearDelta) Clone() YearDelta {
	out := YearDelta{Year: d.Year}
	if d.Deleted != nil {
		out.Deleted = append([]string(nil), d.Deleted...)
	}
	out.AddedOrModified = make(map[string]RuleDefinition, len(d.AddedOrModified))
	for code, def := range d.AddedOrModified {
		out.AddedOrModified[code] = def.clone()
	}
	return out
}

// Compose applies delta to base and returns a new registry. base is never
// mutated: added-or-modified entries are written over a copy of its rules,
// then deleted codes are removed from that copy.
//
// Every added definition is validated first, so a broken rule fails the
// build with InvalidRuleDefinitionError instead of surfacing at run time.
func Compose(base *Registry, delta YearDelta) (*Registry, error) {
	for code, d := range delta.AddedOrModified {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if code != d.Code {
			return nil, &InvalidRuleDefinitionError{Code: d.Code, Reason: "delta key " + code + " does not match rule code"}
		}
	}

	var m map[string]RuleDefinition
	if base != nil {
		m = base.ToMap()
	} else {
		m = make(map[string]RuleDefinition, len(delta.AddedOrModified))
	}

	for code, d := range delta.AddedOrModified {
		m[code] = d.clone()
	}
	for _, code := range delta.Deleted {
		delete(m, code)
	}

	return newRegistryFromMap(m), nil
}
