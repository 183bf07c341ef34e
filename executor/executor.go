// Package executor runs a ruleset against one dataset bundle and aggregates
// the per-rule outcomes into a Report.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/lacvalidate/dataset"
	"github.com/liamcoop/lacvalidate/internal/metrics"
	"github.com/liamcoop/lacvalidate/rules"
)

// Executor runs every rule in a registry against a bundle. Rules run
// concurrently; a failing rule is recorded in the report and never stops
// the others. An Executor holds no per-run state and may be shared.
type Executor struct {
	workers int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the number of rules evaluated at once. n < 1 means 1.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithLogger sets the logger for rule failures and run summaries.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records rule and run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// New creates an executor. By default it uses GOMAXPROCS workers and
// slog.Default().
func New(opts ...Option) *Executor {
	e := &Executor{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type result struct {
	outcome       rules.Outcome
	failure       error
	notApplicable error
	ran           bool
	duration      time.Duration
}

// Run evaluates every rule in reg against b.
//
// The report is always non-nil. The error is non-nil only if ctx was done
// before every rule finished; rules that did not complete are then listed in
// Failures with the context error.
func (e *Executor) Run(ctx context.Context, reg *rules.Registry, b *dataset.Bundle) (*Report, error) {
	return e.run(ctx, reg.Rules(), b)
}

// RunSelected evaluates only the named rules. An unknown code fails with
// RuleNotFoundError before anything runs.
func (e *Executor) RunSelected(ctx context.Context, reg *rules.Registry, b *dataset.Bundle, codes []string) (*Report, error) {
	seen := make(map[string]bool, len(codes))
	defs := make([]rules.RuleDefinition, 0, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		d, err := reg.Get(code)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return e.run(ctx, defs, b)
}

func (e *Executor) run(ctx context.Context, defs []rules.RuleDefinition, b *dataset.Bundle) (*Report, error) {
	start := time.Now()
	results := make([]result, len(defs))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range defs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = e.invoke(ctx, defs[i], b)
			return nil
		})
	}
	_ = g.Wait()

	report := newReport()
	notRun := 0
	for i, d := range defs {
		res := results[i]
		switch {
		case !res.ran:
			notRun++
			report.Failures[d.Code] = fmt.Sprintf("not run: %v", context.Cause(ctx))
		case res.failure != nil:
			report.Failures[d.Code] = res.failure.Error()
			e.metrics.IncrementFailure(d.Code)
			e.logger.Warn("rule failed", "rule", d.Code, "error", res.failure)
		default:
			report.Rules[d.Code] = res.outcome
			if res.notApplicable != nil {
				report.NotApplicable[d.Code] = res.notApplicable.Error()
				e.logger.Debug("rule not applicable", "rule", d.Code, "reason", res.notApplicable)
			}
		}
		if res.ran {
			e.metrics.ObserveRule(d.Code, res.duration)
		}
	}
	report.unionTables()
	for table, rows := range report.Tables {
		e.metrics.AddFlagged(table, len(rows))
	}

	elapsed := time.Since(start)
	if notRun > 0 {
		err := ctx.Err()
		e.metrics.ObserveRun("cancelled", elapsed)
		e.logger.Warn("validation run cancelled",
			"rules", len(defs),
			"not_run", notRun,
			"error", err,
		)
		return report, fmt.Errorf("validation run cancelled: %w", err)
	}

	e.metrics.ObserveRun("completed", elapsed)
	e.logger.Info("validation run complete",
		"rules", len(defs),
		"failed", len(report.Failures),
		"not_applicable", len(report.NotApplicable),
		"flagged_rows", report.FlaggedCount(),
		"duration", elapsed,
	)
	return report, nil
}

// invoke runs one predicate, converting panics and invalid outcomes into
// failures.
func (e *Executor) invoke(ctx context.Context, d rules.RuleDefinition, b *dataset.Bundle) (res result) {
	start := time.Now()
	res.ran = true
	defer func() {
		res.duration = time.Since(start)
		if r := recover(); r != nil {
			res.outcome = nil
			res.notApplicable = nil
			res.failure = fmt.Errorf("panic: %v", r)
		}
	}()

	out, err := d.Predicate(ctx, b)
	if err != nil {
		if errors.Is(err, rules.ErrNotApplicable) {
			res.outcome = rules.Outcome{}
			res.notApplicable = err
			return res
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			// Cancelled mid-rule: discard the in-flight result.
			res.ran = false
			return res
		}
		res.failure = err
		return res
	}

	normalized, err := normalize(out, b)
	if err != nil {
		res.failure = err
		return res
	}
	res.outcome = normalized
	return res
}

// normalize sorts and deduplicates positions, drops empty tables and checks
// every position addresses a row of a table in the bundle.
func normalize(out rules.Outcome, b *dataset.Bundle) (rules.Outcome, error) {
	normalized := make(rules.Outcome, len(out))
	for table, rows := range out {
		if len(rows) == 0 {
			continue
		}
		t, ok := b.Table(table)
		if !ok {
			return nil, fmt.Errorf("outcome references table %s which is not in the bundle", table)
		}

		seen := make(map[int]struct{}, len(rows))
		unique := make([]int, 0, len(rows))
		for _, row := range rows {
			if row < 0 || row >= t.Len() {
				return nil, fmt.Errorf("row position %d out of range for table %s (%d rows)", row, table, t.Len())
			}
			if _, dup := seen[row]; dup {
				continue
			}
			seen[row] = struct{}{}
			unique = append(unique, row)
		}
		sort.Ints(unique)
		normalized[table] = unique
	}
	return normalized, nil
}
