// Package continuity derives whether each subject was continuously in a
// qualifying state (e.g. looked after) for an entire reporting window, and
// broadcasts that flag onto any table keyed by the same subject.
package continuity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liamcoop/lacvalidate/dataset"
)

// Config names the episode columns and the codes that affect continuity.
type Config struct {
	SubjectColumn     string
	StartColumn       string
	EndColumn         string
	EntryReasonColumn string
	ExitReasonColumn  string
	StatusColumn      string

	// FreshEntryCodes mark an episode that opens a new period rather than
	// continuing one.
	FreshEntryCodes []string

	// ContinuesCode is the exit reason meaning "a new episode follows
	// without a break".
	ContinuesCode string

	// ExcludedStatusCodes disqualify a subject if any episode with one of
	// them overlaps the window.
	ExcludedStatusCodes []string
}

// DefaultConfig returns the episode layout of the looked-after children
// return: CHILD, DECOM, DEC, RNE, REC, LS.
func DefaultConfig() Config {
	return Config{
		SubjectColumn:       "CHILD",
		StartColumn:         "DECOM",
		EndColumn:           "DEC",
		EntryReasonColumn:   "RNE",
		ExitReasonColumn:    "REC",
		StatusColumn:        "LS",
		FreshEntryCodes:     []string{"S"},
		ContinuesCode:       "X1",
		ExcludedStatusCodes: []string{"V3", "V4"},
	}
}

type interval struct {
	start, end time.Time
}

type subjectState struct {
	present      bool
	disqualified bool
	covered      []interval
}

// Derive computes, for every subject in episodes, whether they were
// continuously qualifying across [windowStart, windowEnd] (inclusive days).
//
// Subjects absent from episodes are absent from the result; a lookup on the
// returned map yields false for them, which is the required default.
//
// Episodes with an unparseable start, or a non-empty unparseable end, are
// treated as not overlapping the window. The episodes table is not modified.
func Derive(episodes *dataset.Table, windowStart, windowEnd time.Time, cfg Config) map[string]bool {
	ws, we := day(windowStart), day(windowEnd)
	fresh := toSet(cfg.FreshEntryCodes)
	excluded := toSet(cfg.ExcludedStatusCodes)

	states := make(map[string]*subjectState)
	for i := 0; i < episodes.Len(); i++ {
		subject := episodes.String(i, cfg.SubjectColumn)
		if subject == "" {
			continue
		}
		st, ok := states[subject]
		if !ok {
			st = &subjectState{}
			states[subject] = st
		}

		start, end, open, ok := episodeBounds(episodes, i, cfg)
		if !ok {
			continue
		}
		if start.After(we) || (!open && end.Before(ws)) {
			continue
		}
		st.present = true

		if within(start, ws, we) && fresh[episodes.String(i, cfg.EntryReasonColumn)] {
			st.disqualified = true
		}
		if !open && within(end, ws, we) && episodes.String(i, cfg.ExitReasonColumn) != cfg.ContinuesCode {
			st.disqualified = true
		}
		if excluded[episodes.String(i, cfg.StatusColumn)] {
			st.disqualified = true
		}

		iv := interval{start: maxTime(start, ws), end: we}
		if !open {
			iv.end = minTime(end, we)
		}
		st.covered = append(st.covered, iv)
	}

	derived := make(map[string]bool, len(states))
	for subject, st := range states {
		derived[subject] = st.present && !st.disqualified && covers(st.covered, ws, we)
	}
	return derived
}

// FromBundle runs Derive over the named episodes table using the bundle's
// collection window.
func FromBundle(b *dataset.Bundle, episodesTable string, cfg Config) (map[string]bool, error) {
	episodes, ok := b.Table(episodesTable)
	if !ok {
		return nil, fmt.Errorf("table %s not supplied", episodesTable)
	}
	meta := b.Metadata()
	if meta.CollectionStart.IsZero() || meta.CollectionEnd.IsZero() {
		return nil, fmt.Errorf("collection window not set")
	}
	return Derive(episodes, meta.CollectionStart, meta.CollectionEnd, cfg), nil
}

// episodeBounds reads one episode's dates. open is true when the end is blank.
func episodeBounds(t *dataset.Table, row int, cfg Config) (start, end time.Time, open, ok bool) {
	start, ok = t.Date(row, cfg.StartColumn)
	if !ok {
		return time.Time{}, time.Time{}, false, false
	}
	start = day(start)

	if strings.TrimSpace(t.String(row, cfg.EndColumn)) == "" {
		return start, time.Time{}, true, true
	}
	end, ok = t.Date(row, cfg.EndColumn)
	if !ok {
		return time.Time{}, time.Time{}, false, false
	}
	return start, day(end), false, true
}

// covers reports whether the union of ivs spans every day of [ws, we].
// Intervals that meet on consecutive days count as contiguous.
func covers(ivs []interval, ws, we time.Time) bool {
	if len(ivs) == 0 {
		return false
	}
	sorted := make([]interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start.Before(sorted[j].start) })

	// reached is the last day known to be covered.
	reached := ws.AddDate(0, 0, -1)
	for _, iv := range sorted {
		if iv.start.After(reached.AddDate(0, 0, 1)) {
			return false
		}
		if iv.end.After(reached) {
			reached = iv.end
		}
		if !reached.Before(we) {
			return true
		}
	}
	return !reached.Before(we)
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func toSet(codes []string) map[string]bool {
	s := make(map[string]bool, len(codes))
	for _, c := range codes {
		s[c] = true
	}
	return s
}
