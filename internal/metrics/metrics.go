package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for validation runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Per-rule predicate latency
	RuleDuration *prometheus.HistogramVec

	// Rules that errored or panicked, by rule code
	RuleFailures *prometheus.CounterVec

	// Rows flagged, by table
	FlaggedRows *prometheus.CounterVec

	// Whole-run latency
	RunDuration prometheus.Histogram

	// Runs by status: "completed" or "cancelled"
	Runs *prometheus.CounterVec
}

// New creates the validation metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RuleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lacvalidate_rule_duration_seconds",
			Help:    "Duration of a single rule predicate",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"rule"}),

		RuleFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lacvalidate_rule_failures_total",
			Help: "Rules that failed to run, by rule code",
		}, []string{"rule"}),

		FlaggedRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lacvalidate_flagged_rows_total",
			Help: "Row positions flagged by any rule, by table",
		}, []string{"table"}),

		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lacvalidate_run_duration_seconds",
			Help:    "Duration of a full validation run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lacvalidate_runs_total",
			Help: "Validation runs by status",
		}, []string{"status"}),
	}
}

// ObserveRule records one predicate's duration.
func (m *Metrics) ObserveRule(code string, d time.Duration) {
	if m != nil {
		m.RuleDuration.WithLabelValues(code).Observe(d.Seconds())
	}
}

// IncrementFailure records a failed rule.
func (m *Metrics) IncrementFailure(code string) {
	if m != nil {
		m.RuleFailures.WithLabelValues(code).Inc()
	}
}

// AddFlagged records n flagged rows in table.
func (m *Metrics) AddFlagged(table string, n int) {
	if m != nil && n > 0 {
		m.FlaggedRows.WithLabelValues(table).Add(float64(n))
	}
}

// ObserveRun records a run's duration and final status.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
		m.Runs.WithLabelValues(status).Inc()
	}
}
