package rulesets

import (
	"errors"
	"strings"
	"testing"

	"github.com/liamcoop/lacvalidate/rules"
)

func TestValidateDelta_Valid(t *testing.T) {
	d := rules.NewYearDelta(2024, []string{"102", "SW16A"}, def("101", "x"), def("4001Q", "y"))
	if err := ValidateDelta(d); err != nil {
		t.Errorf("ValidateDelta() failed: %v", err)
	}
}

func TestValidateDelta_InvalidCodes(t *testing.T) {
	invalid := []string{"", "1 01", "101-a", strings.Repeat("9", 33)}

	for _, code := range invalid {
		d := rules.NewYearDelta(2024, []string{code})
		if err := ValidateDelta(d); err == nil {
			t.Errorf("expected error for deleted code %q", code)
		}
	}
}

func TestValidateDelta_AddedAndDeleted(t *testing.T) {
	d := rules.NewYearDelta(2024, []string{"101"}, def("101", "x"))

	err := ValidateDelta(d)
	if err == nil {
		t.Fatal("expected error for code both added and deleted")
	}
	if !strings.Contains(err.Error(), "101") {
		t.Errorf("error should mention the code, got: %v", err)
	}
}

func TestValidateDelta_KeyMismatch(t *testing.T) {
	d := rules.YearDelta{Year: 2024, AddedOrModified: map[string]rules.RuleDefinition{"101": def("102", "x")}}

	err := ValidateDelta(d)
	if !errors.Is(err, rules.ErrInvalidRuleDefinition) {
		t.Errorf("ValidateDelta() error = %v, want ErrInvalidRuleDefinition", err)
	}
}

func TestValidateDelta_NilPredicate(t *testing.T) {
	d := rules.YearDelta{Year: 2024, AddedOrModified: map[string]rules.RuleDefinition{"101": {Code: "101"}}}

	err := ValidateDelta(d)
	if !errors.Is(err, rules.ErrInvalidRuleDefinition) {
		t.Errorf("ValidateDelta() error = %v, want ErrInvalidRuleDefinition", err)
	}
}

func TestValidateDelta_Year(t *testing.T) {
	if err := ValidateDelta(rules.NewYearDelta(-1, nil)); err == nil {
		t.Error("expected error for negative year")
	}
}
