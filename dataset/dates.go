package dataset

import (
	"strings"
	"time"
)

// DateLayouts are tried in order by ParseDate. Submissions use dd/mm/yyyy;
// the ISO forms cover JSON produced by other tooling.
var DateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	time.RFC3339,
}

// ParseDate parses a submission date. ok is false for empty or unparseable
// input; callers treat that as "does not match" rather than an error.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateValue interprets a cell as a date. Strings go through ParseDate and
// time.Time passes through; anything else is not a date.
func DateValue(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case string:
		return ParseDate(d)
	default:
		return time.Time{}, false
	}
}

// Date returns the cell at (row, column) as a date.
func (t *Table) Date(row int, column string) (time.Time, bool) {
	v, ok := t.Value(row, column)
	if !ok {
		return time.Time{}, false
	}
	return DateValue(v)
}
