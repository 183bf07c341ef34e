package rulesets

import (
	"fmt"
	"regexp"

	"github.com/liamcoop/lacvalidate/rules"
)

const maxCodeLength = 32

var validCode = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateDelta checks a year delta is well formed before it is composed:
// the year is positive, every code is a valid identifier, added rules are
// valid and keyed by their own code, and no code is both added and deleted.
func ValidateDelta(delta rules.YearDelta) error {
	if delta.Year <= 0 {
		return fmt.Errorf("delta year must be positive, got %d", delta.Year)
	}

	deleted := make(map[string]bool, len(delta.Deleted))
	for _, code := range delta.Deleted {
		if err := validateCode(code); err != nil {
			return fmt.Errorf("year %d: invalid deleted code %q: %w", delta.Year, code, err)
		}
		deleted[code] = true
	}

	for code, def := range delta.AddedOrModified {
		if err := validateCode(code); err != nil {
			return fmt.Errorf("year %d: invalid rule code %q: %w", delta.Year, code, err)
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("year %d: %w", delta.Year, err)
		}
		if def.Code != code {
			return fmt.Errorf("year %d: %w", delta.Year, &rules.InvalidRuleDefinitionError{
				Code:   def.Code,
				Reason: fmt.Sprintf("registered under key %s", code),
			})
		}
		if deleted[code] {
			return fmt.Errorf("year %d: rule %s is both added and deleted", delta.Year, code)
		}
	}

	return nil
}

func validateCode(code string) error {
	if len(code) == 0 {
		return fmt.Errorf("code cannot be empty")
	}
	if len(code) > maxCodeLength {
		return fmt.Errorf("code length %d exceeds maximum of %d characters", len(code), maxCodeLength)
	}
	if !validCode.MatchString(code) {
		return fmt.Errorf("must match pattern %s", validCode.String())
	}
	return nil
}
