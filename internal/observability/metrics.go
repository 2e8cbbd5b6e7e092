package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide Prometheus collector set for the pipeline.
// Construct exactly one with NewMetrics and share it across every turn.
type Metrics struct {
	// ToolCallTotal counts terminal tool attempts.
	// Labels: tool, workspace, result (success|error|rate_limited|circuit_open|duplicate), status_code
	ToolCallTotal *prometheus.CounterVec

	// ToolCallDuration measures tool execution latency in seconds, same labels as ToolCallTotal.
	ToolCallDuration *prometheus.HistogramVec

	// TurnsTotal counts completed orchestrator turns. Labels: workspace, intent.
	TurnsTotal *prometheus.CounterVec

	// ExtractorFallbackTotal counts Extractor degradations to the heuristic path. Labels: workspace.
	ExtractorFallbackTotal *prometheus.CounterVec

	// PlannerFallbackTotal counts Planner degradations to the deterministic table. Labels: workspace.
	PlannerFallbackTotal *prometheus.CounterVec

	// PolicyDecisionTotal counts policy gate outcomes. Labels: tool, workspace, decision.
	PolicyDecisionTotal *prometheus.CounterVec

	// CircuitStateTotal counts circuit breaker state transitions. Labels: tool, workspace, to_state.
	CircuitStateTotal *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics registers and returns the collector set against the default
// registry. Registration happens once per process; repeated calls (e.g.
// from multiple tests in one binary) return the same instance instead of
// panicking on duplicate registration.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

func newMetrics() *Metrics {
	return &Metrics{
		ToolCallTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tool_call_total",
			Help: "Total terminal tool call attempts by outcome.",
		}, []string{"tool", "workspace", "result", "status_code"}),

		ToolCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tool_call_duration_seconds",
			Help:    "Tool call latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
		}, []string{"tool", "workspace", "result", "status_code"}),

		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turns_total",
			Help: "Total orchestrator turns processed, by detected intent.",
		}, []string{"workspace", "intent"}),

		ExtractorFallbackTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "extractor_fallback_total",
			Help: "Total Extractor degradations to the heuristic keyword fallback.",
		}, []string{"workspace"}),

		PlannerFallbackTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_fallback_total",
			Help: "Total Planner degradations to the deterministic fallback table.",
		}, []string{"workspace"}),

		PolicyDecisionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_decision_total",
			Help: "Policy Engine per-action decisions.",
		}, []string{"tool", "workspace", "decision"}),

		CircuitStateTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "circuit_breaker_state_total",
			Help: "Circuit breaker state transitions.",
		}, []string{"tool", "workspace", "to_state"}),
	}
}

// RecordToolCall records both the counter and latency histogram for one
// terminal tool attempt in a single call, so call sites cannot update one
// without the other.
func (m *Metrics) RecordToolCall(tool, workspace, result, statusCode string, durationSeconds float64) {
	m.ToolCallTotal.WithLabelValues(tool, workspace, result, statusCode).Inc()
	m.ToolCallDuration.WithLabelValues(tool, workspace, result, statusCode).Observe(durationSeconds)
}
