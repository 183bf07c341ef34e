package continuity

import (
	"fmt"

	"github.com/liamcoop/lacvalidate/dataset"
)

// Attach returns a copy of target with a boolean column holding derived[subject]
// for each row. Subjects missing from derived get false, never nil.
func Attach(target *dataset.Table, derived map[string]bool, subjectColumn, column string) (*dataset.Table, error) {
	if !target.HasColumn(subjectColumn) {
		return nil, fmt.Errorf("table has no %s column", subjectColumn)
	}

	values := make([]any, target.Len())
	for i := range values {
		values[i] = derived[target.String(i, subjectColumn)]
	}
	return target.WithColumn(column, values)
}

// AttachAll broadcasts derived onto every table in b that has subjectColumn
// and returns the resulting bundle. b itself is unchanged.
func AttachAll(b *dataset.Bundle, derived map[string]bool, subjectColumn, column string) (*dataset.Bundle, error) {
	out := b
	for _, name := range b.TableNames() {
		t, _ := b.Table(name)
		if !t.HasColumn(subjectColumn) {
			continue
		}
		withFlag, err := Attach(t, derived, subjectColumn, column)
		if err != nil {
			return nil, fmt.Errorf("attach to %s: %w", name, err)
		}
		out = out.WithTable(name, withFlag)
	}
	return out, nil
}
