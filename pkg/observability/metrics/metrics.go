// Package metrics exposes prometheus instrumentation for the scoring engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunDuration tracks end-to-end scoring run latency.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "focus_scoring_run_duration_seconds",
			Help:    "Duration of a full focus-area scoring run",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	// RuleEvaluationDuration tracks per-rule evaluation latency.
	RuleEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focus_scoring_rule_evaluation_duration_seconds",
			Help:    "Duration of a single rule evaluation",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		},
		[]string{"rule"},
	)

	// RuleMatchCounter counts non-zero rule contributions per domain.
	RuleMatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_scoring_rule_matches_total",
			Help: "Number of non-zero rule contributions, by rule and domain",
		},
		[]string{"rule", "domain"},
	)

	// SafetyEscalationCounter counts safety-flag escalations per flag kind.
	SafetyEscalationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_scoring_safety_escalations_total",
			Help: "Number of safety escalations, by flag kind",
		},
		[]string{"kind"},
	)

	// DomainRejectionCounter counts contributions dropped because a rule
	// named an undeclared domain.
	DomainRejectionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_scoring_domain_rejections_total",
			Help: "Contributions dropped for naming an undeclared domain",
		},
		[]string{"rule"},
	)

	// ValidationWarningCounter counts fields that failed shape validation.
	ValidationWarningCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_scoring_validation_warnings_total",
			Help: "Fields that failed shape or type validation",
		},
		[]string{"topic"},
	)

	// CapClampCounter counts per-domain global cap clamps.
	CapClampCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_scoring_cap_clamps_total",
			Help: "Domain totals clamped to the engine-wide cap",
		},
		[]string{"domain"},
	)
)

// RecordRunDuration records one scoring run's latency in seconds.
func RecordRunDuration(seconds float64) {
	RunDuration.Observe(seconds)
}

// RecordRuleEvaluation records a single rule evaluation's latency.
func RecordRuleEvaluation(rule string, seconds float64) {
	RuleEvaluationDuration.WithLabelValues(rule).Observe(seconds)
}

// RecordRuleMatch records a non-zero contribution from rule to domain.
func RecordRuleMatch(rule, domain string) {
	RuleMatchCounter.WithLabelValues(rule, domain).Inc()
}

// RecordSafetyEscalation records a safety-flag escalation.
func RecordSafetyEscalation(kind string) {
	SafetyEscalationCounter.WithLabelValues(kind).Inc()
}

// RecordDomainRejection records a dropped contribution to an undeclared domain.
func RecordDomainRejection(rule string) {
	DomainRejectionCounter.WithLabelValues(rule).Inc()
}

// RecordValidationWarning records a field shape-validation failure.
func RecordValidationWarning(topic string) {
	ValidationWarningCounter.WithLabelValues(topic).Inc()
}

// RecordCapClamp records a global-cap clamp for a domain.
func RecordCapClamp(domain string) {
	CapClampCounter.WithLabelValues(domain).Inc()
}
