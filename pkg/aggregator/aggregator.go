// Copyright 2025 Certen Protocol
//
// Package aggregator is the Result Aggregator (spec §4.12): it accepts
// error and warning events from every pipeline component and produces
// a single structured ValidationResult, plus per-component and
// per-kind counters for embedders to alert on.
//
// The Result{Valid, Errors, Warnings} plus Add/AddAll shape is
// grounded directly on the teacher's
// pkg/verification/unified_verifier.go VerificationResult/AddError/
// AddWarning, adapted from four fixed proof levels to an open-ended
// sequence of component events classified by verrors.Event.IsWarning.
package aggregator

import (
	"sync"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
	"github.com/prometheus/client_golang/prometheus"
)

// Result is the final report produced for one validation call.
type Result struct {
	Valid    bool
	Errors   []verrors.Event
	Warnings []verrors.Event
	Document *docmodel.Document
}

// Add files ev into the Errors or Warnings stream, in the order it
// arrives. Document order and component order are the caller's
// responsibility: the aggregator never reorders or deduplicates.
func (r *Result) Add(ev verrors.Event) {
	if ev.IsWarning() {
		r.Warnings = append(r.Warnings, ev)
	} else {
		r.Errors = append(r.Errors, ev)
	}
}

// AddAll appends every event in evs, preserving order.
func (r *Result) AddAll(evs []verrors.Event) {
	for _, ev := range evs {
		r.Add(ev)
	}
}

// Metrics exposes per-component and per-kind counters (§4.12) so an
// embedder can alert on elevated SignatureInvalid or
// DIDResolutionFailed rates across many validation calls without
// parsing report text.
type Metrics struct {
	eventsTotal *prometheus.CounterVec
	runsTotal   *prometheus.CounterVec
}

// NewMetrics constructs counters and registers them with reg. Passing
// a fresh prometheus.NewRegistry() (rather than the global default
// registry) is recommended for tests, matching the teacher's
// per-instance-not-singleton convention used elsewhere in this module.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provenance_verifier",
			Name:      "events_total",
			Help:      "Count of validation events emitted, by component, kind and severity.",
		}, []string{"component", "kind", "severity"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provenance_verifier",
			Name:      "runs_total",
			Help:      "Count of validation runs, by verdict.",
		}, []string{"verdict"}),
	}
	if reg != nil {
		reg.MustRegister(m.eventsTotal, m.runsTotal)
	}
	return m
}

// Observe records every event in result against the counters, plus
// one run-verdict increment.
func (m *Metrics) Observe(result *Result) {
	if m == nil {
		return
	}
	for _, ev := range result.Errors {
		m.eventsTotal.WithLabelValues(ev.Component, string(ev.Kind), "error").Inc()
	}
	for _, ev := range result.Warnings {
		m.eventsTotal.WithLabelValues(ev.Component, string(ev.Kind), "warning").Inc()
	}
	verdict := "invalid"
	if result.Valid {
		verdict = "valid"
	}
	m.runsTotal.WithLabelValues(verdict).Inc()
}

// Aggregator collects events across one validation call and, on
// Finish, produces the Result and records it against an optional
// shared Metrics instance. A new Aggregator is constructed per call;
// Metrics may be shared across many calls (it is the only piece of
// aggregator state the concurrency model asks to be cross-call
// shared, per §5).
type Aggregator struct {
	mu      sync.Mutex
	result  Result
	metrics *Metrics
}

// New constructs an Aggregator for doc, recording observed events
// against the optional shared metrics (nil disables metrics).
func New(doc *docmodel.Document, metrics *Metrics) *Aggregator {
	return &Aggregator{result: Result{Document: doc}, metrics: metrics}
}

// Record appends evs to the aggregator's streams. Safe to call from
// multiple component workers concurrently; callers running parallel
// per-node checks within one component (§5) must still funnel results
// through a single Aggregator to keep emission order deterministic
// for any two calls that serialize their Record calls identically.
func (a *Aggregator) Record(evs []verrors.Event) {
	if len(evs) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.AddAll(evs)
}

// Finish computes the final verdict (valid iff zero errors) and
// returns the Result, recording it against the shared Metrics if one
// was supplied.
func (a *Aggregator) Finish() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.Valid = len(a.result.Errors) == 0
	if a.metrics != nil {
		a.metrics.Observe(&a.result)
	}
	return a.result
}
