package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Metadata carries the run context predicates read but the core never
// interprets: the collection window, the submitting authority and any
// externally sourced lookup tables.
type Metadata struct {
	CollectionStart time.Time         `json:"collection_start"`
	CollectionEnd   time.Time         `json:"collection_end"`
	Authority       string            `json:"authority,omitempty"`
	Lookups         map[string]*Table `json:"lookups,omitempty"`
	Values          map[string]string `json:"values,omitempty"`
}

// Lookup returns a reference table by name.
func (m Metadata) Lookup(name string) (*Table, bool) {
	t, ok := m.Lookups[name]
	return t, ok
}

// Bundle is the full set of submitted tables plus metadata for one run.
// It is read-only once constructed and safe for concurrent readers.
type Bundle struct {
	tables map[string]*Table
	meta   Metadata
}

// NewBundle builds a bundle. The tables map is copied; tables themselves are
// immutable and shared.
func NewBundle(tables map[string]*Table, meta Metadata) *Bundle {
	t := make(map[string]*Table, len(tables))
	for name, tbl := range tables {
		if tbl != nil {
			t[name] = tbl
		}
	}
	meta.Lookups = copyTables(meta.Lookups)
	if meta.Values != nil {
		vals := make(map[string]string, len(meta.Values))
		for k, v := range meta.Values {
			vals[k] = v
		}
		meta.Values = vals
	}
	return &Bundle{tables: t, meta: meta}
}

func copyTables(in map[string]*Table) map[string]*Table {
	if in == nil {
		return nil
	}
	out := make(map[string]*Table, len(in))
	for k, v := range in {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// Table returns the named table.
func (b *Bundle) Table(name string) (*Table, bool) {
	t, ok := b.tables[name]
	return t, ok
}

// TableNames returns the table names in sorted order.
func (b *Bundle) TableNames() []string {
	names := make([]string, 0, len(b.tables))
	for name := range b.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata returns a copy of the bundle metadata.
func (b *Bundle) Metadata() Metadata {
	m := b.meta
	m.Lookups = copyTables(b.meta.Lookups)
	if b.meta.Values != nil {
		m.Values = make(map[string]string, len(b.meta.Values))
		for k, v := range b.meta.Values {
			m.Values[k] = v
		}
	}
	return m
}

// WithTable returns a new bundle with name bound to t, or without name when
// t is nil. The receiver is unchanged.
func (b *Bundle) WithTable(name string, t *Table) *Bundle {
	tables := copyTables(b.tables)
	if tables == nil {
		tables = make(map[string]*Table, 1)
	}
	if t == nil {
		delete(tables, name)
	} else {
		tables[name] = t
	}
	return &Bundle{tables: tables, meta: b.meta}
}

type bundleJSON struct {
	Tables   map[string]*Table `json:"tables"`
	Metadata metadataJSON      `json:"metadata"`
}

type metadataJSON struct {
	CollectionStart string            `json:"collection_start"`
	CollectionEnd   string            `json:"collection_end"`
	Authority       string            `json:"authority,omitempty"`
	Lookups         map[string]*Table `json:"lookups,omitempty"`
	Values          map[string]string `json:"values,omitempty"`
}

// DecodeBundle reads a JSON document of the form
//
//	{"tables": {"Header": [{...}, ...]}, "metadata": {"collection_start": "01/04/2023", ...}}
//
// Collection dates accept the layouts understood by ParseDate.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	var raw bundleJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	start, ok := ParseDate(raw.Metadata.CollectionStart)
	if !ok {
		return nil, fmt.Errorf("invalid collection_start %q", raw.Metadata.CollectionStart)
	}
	end, ok := ParseDate(raw.Metadata.CollectionEnd)
	if !ok {
		return nil, fmt.Errorf("invalid collection_end %q", raw.Metadata.CollectionEnd)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("collection_end %s is before collection_start %s", raw.Metadata.CollectionEnd, raw.Metadata.CollectionStart)
	}

	return NewBundle(raw.Tables, Metadata{
		CollectionStart: start,
		CollectionEnd:   end,
		Authority:       raw.Metadata.Authority,
		Lookups:         raw.Metadata.Lookups,
		Values:          raw.Metadata.Values,
	}), nil
}
