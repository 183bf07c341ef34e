package catalogue

import "github.com/liamcoop/lacvalidate/rules"

// 2024 dropped the stand-alone date-of-birth check, widened the ethnicity
// list and added a reason-for-new-episode check.
func delta2024() rules.YearDelta {
	codes := append(append([]string{}, ethnicCodes2023...), "WHIR", "AOTA")
	return rules.NewYearDelta(2024, []string{"102"},
		rule103(codes),
		rule205(),
	)
}

func rule205() rules.RuleDefinition {
	return mustExpression(rules.ExpressionSpec{
		Code:           "205",
		Message:        "Reason for new episode is not a valid code.",
		Table:          Episodes,
		Expression:     `has(row.RNE) && !(row.RNE in ["S", "P", "L", "T", "U", "B"])`,
		AffectedFields: []string{"RNE"},
	})
}
