package catalogue

import (
	"context"
	"strings"

	"github.com/liamcoop/lacvalidate/continuity"
	"github.com/liamcoop/lacvalidate/dataset"
	"github.com/liamcoop/lacvalidate/rules"
)

// ContinuousColumn is the derived column OC2 checks read.
const ContinuousColumn = "CONTINUOUSLY_LOOKED_AFTER"

var ethnicCodes2023 = []string{
	"WBRI", "WIRI", "WOTH", "WIRT", "WROM", "MWBC", "MWBA", "MWAS", "MOTH",
	"AIND", "APKN", "ABAN", "AOTH", "BCRB", "BAFR", "BOTH", "CHNE", "OOTH",
	"REFU", "NOBT",
}

func delta2023() rules.YearDelta {
	return rules.NewYearDelta(2023, nil,
		rule101(),
		rule102(),
		rule103(ethnicCodes2023),
		rule202(),
		rule1008(),
	)
}

func rule101() rules.RuleDefinition {
	return mustExpression(rules.ExpressionSpec{
		Code:           "101",
		Message:        "Gender code is not valid.",
		Table:          Header,
		Expression:     `has(row.SEX) && !(row.SEX in ["1", "2"])`,
		AffectedFields: []string{"SEX"},
	})
}

func rule102() rules.RuleDefinition {
	return rules.RuleDefinition{
		Code:             "102",
		Message:          "Date of birth is not a valid date.",
		AffectedFields:   []string{"DOB"},
		ApplicableTables: []string{Header},
		Predicate: func(ctx context.Context, b *dataset.Bundle) (rules.Outcome, error) {
			return tableOutcome(ctx, b, Header, func(t *dataset.Table, i int) bool {
				_, ok := t.Date(i, "DOB")
				return !ok
			})
		},
	}
}

func rule103(codes []string) rules.RuleDefinition {
	valid := make(map[string]bool, len(codes))
	for _, c := range codes {
		valid[c] = true
	}
	return rules.RuleDefinition{
		Code:             "103",
		Message:          "The ethnicity code is either not valid or has not been entered.",
		AffectedFields:   []string{"ETHNIC"},
		ApplicableTables: []string{Header},
		Predicate: func(ctx context.Context, b *dataset.Bundle) (rules.Outcome, error) {
			return tableOutcome(ctx, b, Header, func(t *dataset.Table, i int) bool {
				return !valid[strings.TrimSpace(t.String(i, "ETHNIC"))]
			})
		},
	}
}

func rule202() rules.RuleDefinition {
	return rules.RuleDefinition{
		Code:             "202",
		Message:          "Date episode ceased is before the date the episode began.",
		AffectedFields:   []string{"DECOM", "DEC"},
		ApplicableTables: []string{Episodes},
		Predicate: func(ctx context.Context, b *dataset.Bundle) (rules.Outcome, error) {
			return tableOutcome(ctx, b, Episodes, func(t *dataset.Table, i int) bool {
				start, ok := t.Date(i, "DECOM")
				if !ok {
					return false
				}
				end, ok := t.Date(i, "DEC")
				return ok && end.Before(start)
			})
		},
	}
}

// rule1008 flags OC2 rows for children who were not looked after
// continuously for the whole collection year.
func rule1008() rules.RuleDefinition {
	return rules.RuleDefinition{
		Code:             "1008",
		Message:          "Child should not be in the OC2 return unless looked after continuously for 12 months.",
		AffectedFields:   []string{"CHILD"},
		ApplicableTables: []string{OC2, Episodes},
		Predicate: func(ctx context.Context, b *dataset.Bundle) (rules.Outcome, error) {
			oc2, ok := b.Table(OC2)
			if !ok {
				return nil, rules.NotApplicable("table %s not supplied", OC2)
			}
			if _, ok := b.Table(Episodes); !ok {
				return nil, rules.NotApplicable("table %s not supplied", Episodes)
			}

			cfg := continuity.DefaultConfig()
			derived, err := continuity.FromBundle(b, Episodes, cfg)
			if err != nil {
				return nil, err
			}
			marked, err := continuity.Attach(oc2, derived, cfg.SubjectColumn, ContinuousColumn)
			if err != nil {
				return nil, err
			}

			flagged, err := flagRows(ctx, marked, func(i int) bool {
				v, _ := marked.Value(i, ContinuousColumn)
				continuous, _ := v.(bool)
				return !continuous
			})
			if err != nil {
				return nil, err
			}
			if len(flagged) == 0 {
				return rules.Outcome{}, nil
			}
			return rules.Outcome{OC2: flagged}, nil
		},
	}
}
