package executor

import (
	"sort"

	"github.com/liamcoop/lacvalidate/rules"
)

// Report is the result of one validation run. It is never modified after
// Run returns.
type Report struct {
	// Rules holds the normalized outcome of every rule that ran, including
	// rules that declined. Row positions are sorted and unique.
	Rules map[string]rules.Outcome `json:"rules"`

	// Tables is the union of flagged row positions across all rules.
	Tables map[string][]int `json:"tables"`

	// Failures maps rule codes that errored, panicked, produced an invalid
	// outcome or never ran to the reason.
	Failures map[string]string `json:"failures"`

	// NotApplicable maps rule codes that declined to run to their reason.
	// These rules also appear in Rules with an empty outcome.
	NotApplicable map[string]string `json:"not_applicable"`
}

func newReport() *Report {
	return &Report{
		Rules:         make(map[string]rules.Outcome),
		Tables:        make(map[string][]int),
		Failures:      make(map[string]string),
		NotApplicable: make(map[string]string),
	}
}

// Codes returns the codes of rules that ran, sorted.
func (r *Report) Codes() []string {
	return sortedKeys(r.Rules)
}

// FailedCodes returns the codes of rules that failed, sorted.
func (r *Report) FailedCodes() []string {
	return sortedKeys(r.Failures)
}

// FlaggedCodes returns the codes of rules that flagged at least one row.
func (r *Report) FlaggedCodes() []string {
	var codes []string
	for code, out := range r.Rules {
		if len(out) > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// FlaggedCount returns the number of distinct (table, row) pairs flagged.
func (r *Report) FlaggedCount() int {
	n := 0
	for _, rows := range r.Tables {
		n += len(rows)
	}
	return n
}

// unionTables rebuilds Tables from Rules.
func (r *Report) unionTables() {
	sets := make(map[string]map[int]struct{})
	for _, out := range r.Rules {
		for table, rows := range out {
			s, ok := sets[table]
			if !ok {
				s = make(map[int]struct{})
				sets[table] = s
			}
			for _, row := range rows {
				s[row] = struct{}{}
			}
		}
	}

	r.Tables = make(map[string][]int, len(sets))
	for table, s := range sets {
		rows := make([]int, 0, len(s))
		for row := range s {
			rows = append(rows, row)
		}
		sort.Ints(rows)
		r.Tables[table] = rows
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
