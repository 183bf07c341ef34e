package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match these with errors.Is.
var (
	ErrDuplicateRule         = errors.New("duplicate rule")
	ErrRuleNotFound          = errors.New("rule not found")
	ErrInvalidRuleDefinition = errors.New("invalid rule definition")

	// ErrNotApplicable is returned (wrapped) by predicates that decline to run,
	// e.g. because a table they need was not submitted.
	ErrNotApplicable = errors.New("rule not applicable")
)

// DuplicateRuleError reports an insert of a code already in a registry.
type DuplicateRuleError struct {
	Code string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule with code %s already exists", e.Code)
}

func (e *DuplicateRuleError) Is(target error) bool { return target == ErrDuplicateRule }

// RuleNotFoundError reports a lookup of a code absent from a registry.
type RuleNotFoundError struct {
	Code string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("rule with code %s not found", e.Code)
}

func (e *RuleNotFoundError) Is(target error) bool { return target == ErrRuleNotFound }

// InvalidRuleDefinitionError reports a definition that cannot be registered.
type InvalidRuleDefinitionError struct {
	Code   string
	Reason string
	Err    error
}

func (e *InvalidRuleDefinitionError) Error() string {
	msg := fmt.Sprintf("invalid rule definition %q: %s", e.Code, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidRuleDefinitionError) Is(target error) bool { return target == ErrInvalidRuleDefinition }

func (e *InvalidRuleDefinitionError) Unwrap() error { return e.Err }

// NotApplicable builds an error wrapping ErrNotApplicable.
func NotApplicable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotApplicable, fmt.Sprintf(format, args...))
}
