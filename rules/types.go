package rules

import (
	"context"

	"github.com/liamcoop/lacvalidate/dataset"
)

// Outcome maps a table name to the row positions in that table that violate
// a rule. Tables with no violations should be absent.
type Outcome map[string][]int

// Predicate is the invocation contract every rule satisfies. It must be a
// pure function of the bundle: read any tables or metadata, mutate nothing.
// Returning an error wrapping ErrNotApplicable declines the rule; any other
// error is a rule failure.
type Predicate func(ctx context.Context, b *dataset.Bundle) (Outcome, error)

// RuleDefinition is the identity and metadata of one rule.
// The registry stores copies, so a definition is immutable once registered.
type RuleDefinition struct {
	Code             string
	Message          string
	AffectedFields   []string
	ApplicableTables []string
	Predicate        Predicate
}

// clone returns a copy whose slices do not alias the receiver's.
func (d RuleDefinition) clone() RuleDefinition {
	out := d
	if d.AffectedFields != nil {
		out.AffectedFields = append([]string(nil), d.AffectedFields...)
	}
	if d.ApplicableTables != nil {
		out.ApplicableTables = append([]string(nil), d.ApplicableTables...)
	}
	return out
}

// Validate checks the definition carries what the executor needs.
func (d RuleDefinition) Validate() error {
	if d.Code == "" {
		return &InvalidRuleDefinitionError{Reason: "code is empty"}
	}
	for _, r := range d.Code {
		if r == ' ' || r == '\t' || r == '\n' {
			return &InvalidRuleDefinitionError{Code: d.Code, Reason: "code contains whitespace"}
		}
	}
	if d.Predicate == nil {
		return &InvalidRuleDefinitionError{Code: d.Code, Reason: "predicate is nil"}
	}
	return nil
}
