package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Table is an immutable, row-indexed relation stored column-major.
// Row positions are stable for the lifetime of the value: every "mutating"
// operation returns a new Table that shares the untouched columns. Nested
// slice and map cells are copied on the way in and on every read.
type Table struct {
	columns []string
	data    map[string][]any
	rows    int
}

// NewTable builds a table from a column list and row-major values.
// Every row must have exactly len(columns) values.
func NewTable(columns []string, rows [][]any) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("column name cannot be empty")
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}

	data := make(map[string][]any, len(columns))
	for _, c := range columns {
		data[c] = make([]any, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		for j, c := range columns {
			data[c][i] = cloneValue(row[j])
		}
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, data: data, rows: len(rows)}, nil
}

// FromRecords builds a table from a slice of records. The column set is the
// union of record keys, sorted; keys missing from a record are nil.
func FromRecords(records []map[string]any) *Table {
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	data := make(map[string][]any, len(columns))
	for _, c := range columns {
		vals := make([]any, len(records))
		for i, rec := range records {
			vals[i] = cloneValue(rec[c])
		}
		data[c] = vals
	}
	return &Table{columns: columns, data: data, rows: len(records)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Value returns the cell at (row, column). ok is false when the column is
// unknown or row is out of range.
func (t *Table) Value(row int, column string) (any, bool) {
	vals, ok := t.data[column]
	if !ok || row < 0 || row >= t.rows {
		return nil, false
	}
	return cloneValue(vals[row]), true
}

// String returns the cell formatted as a string, "" for nil or missing cells.
func (t *Table) String(row int, column string) string {
	v, ok := t.Value(row, column)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]any, bool) {
	vals, ok := t.data[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = cloneValue(v)
	}
	return out, true
}

// Row returns a fresh map of column name to value for one row.
func (t *Table) Row(i int) map[string]any {
	if i < 0 || i >= t.rows {
		return nil
	}
	row := make(map[string]any, len(t.columns))
	for _, c := range t.columns {
		row[c] = cloneValue(t.data[c][i])
	}
	return row
}

// WithColumn returns a new table with the named column set to values,
// replacing the column if it already exists. The receiver is unchanged.
func (t *Table) WithColumn(name string, values []any) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("column name cannot be empty")
	}
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}

	data := make(map[string][]any, len(t.data)+1)
	for k, v := range t.data {
		data[k] = v
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = cloneValue(v)
	}
	data[name] = vals

	columns := t.columns
	if _, exists := t.data[name]; !exists {
		columns = make([]string, len(t.columns), len(t.columns)+1)
		copy(columns, t.columns)
		columns = append(columns, name)
	}
	return &Table{columns: columns, data: data, rows: t.rows}, nil
}

// MarshalJSON encodes the table as an array of row objects.
func (t *Table) MarshalJSON() ([]byte, error) {
	records := make([]map[string]any, t.rows)
	for i := range records {
		records[i] = t.Row(i)
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes an array of row objects.
func (t *Table) UnmarshalJSON(b []byte) error {
	var records []map[string]any
	if err := json.Unmarshal(b, &records); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	*t = *FromRecords(records)
	return nil
}

// cloneValue deep-copies the nested slices and maps JSON decoding produces,
// so no cell is reachable from outside the table. Scalars are returned as is.
func cloneValue(v any) any {
	switch c := v.(type) {
	case []any:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, e := range c {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
