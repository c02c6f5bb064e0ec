// Package metrics defines the prometheus instrumentation for the matching
// engine and the pattern sources. All methods are safe on a nil receiver so
// components can run uninstrumented without guarding every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine holds the matching-engine collectors.
type Engine struct {
	patternsCompiled prometheus.Counter
	compileErrors    prometheus.Counter
	matchRuns        prometheus.Counter
	matchesFound     prometheus.Counter
	matchDuration    prometheus.Histogram
	sourceReloads    prometheus.Counter
}

// NewEngine registers and returns the engine collectors. Pass
// prometheus.DefaultRegisterer outside of tests.
func NewEngine(reg prometheus.Registerer) *Engine {
	m := &Engine{
		patternsCompiled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanex",
			Name:      "patterns_compiled_total",
			Help:      "Patterns successfully compiled and installed.",
		}),
		compileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanex",
			Name:      "pattern_compile_errors_total",
			Help:      "Pattern batches rejected at registration.",
		}),
		matchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanex",
			Name:      "match_runs_total",
			Help:      "Documents matched.",
		}),
		matchesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanex",
			Name:      "matches_found_total",
			Help:      "Raw matches reported across all documents.",
		}),
		matchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spanex",
			Name:      "match_duration_seconds",
			Help:      "Wall time of one document match run.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		sourceReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanex",
			Name:      "pattern_source_reloads_total",
			Help:      "Pattern-set file reloads applied to the engine.",
		}),
	}
	reg.MustRegister(
		m.patternsCompiled,
		m.compileErrors,
		m.matchRuns,
		m.matchesFound,
		m.matchDuration,
		m.sourceReloads,
	)
	return m
}

// AddPatternsCompiled counts successfully installed patterns.
func (m *Engine) AddPatternsCompiled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.patternsCompiled.Add(float64(n))
}

// IncCompileErrors counts a rejected registration batch.
func (m *Engine) IncCompileErrors() {
	if m == nil {
		return
	}
	m.compileErrors.Inc()
}

// ObserveMatchRun records one document match run.
func (m *Engine) ObserveMatchRun(took time.Duration, matches int) {
	if m == nil {
		return
	}
	m.matchRuns.Inc()
	m.matchesFound.Add(float64(matches))
	m.matchDuration.Observe(took.Seconds())
}

// IncSourceReloads counts an applied pattern-file reload.
func (m *Engine) IncSourceReloads() {
	if m == nil {
		return
	}
	m.sourceReloads.Inc()
}
