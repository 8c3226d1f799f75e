// Package observability wires the teacher's Prometheus/OpenTelemetry
// stack into Orito's domain: agent lifecycle, tool executions, classifier
// outcomes, and circuit-breaker state (SPEC_FULL.md §11 DOMAIN STACK).
// Grounded on the teacher's internal/observability/{metrics,tracing}.go.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics centralizes every Prometheus collector the orchestrator and
// agent runtime report to. A nil *Metrics is valid everywhere it is used
// (every method guards with a nil check) so metrics stay optional for
// callers that don't configure observability.metrics_port.
//
// Nothing in this module calls ToolExecutionObserved or LLMCallObserved,
// so ToolExecutions, ToolExecutionDuration, LLMTokens and LLMRequests stay
// at zero unless a caller outside the module reports to them.
type Metrics struct {
	// ActiveAgents tracks live agents per tier, enforcing visibility into
	// spec §5's TIER_LIMITS ceiling.
	// Labels: tier
	ActiveAgents *prometheus.GaugeVec

	// AgentRuns counts terminal agent outcomes.
	// Labels: agent_type, status (done|error)
	AgentRuns *prometheus.CounterVec

	// AgentRunDuration measures one agent run() invocation in seconds.
	// Labels: agent_type
	AgentRunDuration *prometheus.HistogramVec

	// ToolExecutions counts tool dispatches from the tool-calling loop.
	// Labels: tool_name, status (success|error)
	ToolExecutions *prometheus.CounterVec

	// ToolExecutionDuration measures tool dispatch latency in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// ClassifierResults counts classify() outcomes.
	// Labels: intent, complexity
	ClassifierResults *prometheus.CounterVec

	// CircuitBreakerOpen is 1 when a named breaker is open, 0 otherwise.
	// Labels: agent_type
	CircuitBreakerOpen *prometheus.GaugeVec

	// LLMTokens tracks token consumption per model and usage kind.
	// Labels: model, kind (prompt|completion|total)
	LLMTokens *prometheus.CounterVec

	// LLMRequests counts completion calls by model and outcome.
	// Labels: model, status (success|error)
	LLMRequests *prometheus.CounterVec

	// PendingQuestions gauges the size of the orchestrator's
	// question-routing index (spec §3 "no zombie entries" invariant made
	// observable). The orchestrator always sets PendingSubAgents to 0; the
	// pending sub-agent requests held by each Runtime are not counted.
	PendingQuestions prometheus.Gauge
	PendingSubAgents prometheus.Gauge
}

// NewMetrics creates and registers every collector against the default
// Prometheus registry. Call once at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		ActiveAgents: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orito_active_agents",
				Help: "Current number of live agents by tier",
			},
			[]string{"tier"},
		),
		AgentRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orito_agent_runs_total",
				Help: "Total terminal agent outcomes by agent type and status",
			},
			[]string{"agent_type", "status"},
		),
		AgentRunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orito_agent_run_duration_seconds",
				Help:    "Duration of one agent run in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"agent_type"},
		),
		ToolExecutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orito_tool_executions_total",
				Help: "Total tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orito_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),
		ClassifierResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orito_classifier_results_total",
				Help: "Total classifier outcomes by intent and complexity",
			},
			[]string{"intent", "complexity"},
		),
		CircuitBreakerOpen: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orito_circuit_breaker_open",
				Help: "1 if the named circuit breaker is open, 0 otherwise",
			},
			[]string{"agent_type"},
		),
		LLMTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orito_llm_tokens_total",
				Help: "Total tokens used by model and usage kind",
			},
			[]string{"model", "kind"},
		),
		LLMRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orito_llm_requests_total",
				Help: "Total LLM completion calls by model and status",
			},
			[]string{"model", "status"},
		),
		PendingQuestions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orito_pending_questions",
				Help: "Current number of pending agent:question entries awaiting an answer",
			},
		),
		PendingSubAgents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orito_pending_sub_agent_requests",
				Help: "Current number of pending sub-agent spawn requests awaiting resolution",
			},
		),
	}
}

// AgentRunObserved records one terminal agent outcome and its duration.
// A no-op when m is nil so every call site can skip its own guard.
func (m *Metrics) AgentRunObserved(agentType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.AgentRuns.WithLabelValues(agentType, status).Inc()
	m.AgentRunDuration.WithLabelValues(agentType).Observe(seconds)
}

// ToolExecutionObserved records one tool dispatch outcome and its duration.
func (m *Metrics) ToolExecutionObserved(toolName, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutions.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(seconds)
}

// ClassifierObserved records one classify() outcome.
func (m *Metrics) ClassifierObserved(intent, complexity string) {
	if m == nil {
		return
	}
	m.ClassifierResults.WithLabelValues(intent, complexity).Inc()
}

// SetActiveAgents sets the active-agent gauge for tier.
func (m *Metrics) SetActiveAgents(tier string, n int) {
	if m == nil {
		return
	}
	m.ActiveAgents.WithLabelValues(tier).Set(float64(n))
}

// SetCircuitBreakerOpen reflects a named breaker's state into the gauge.
func (m *Metrics) SetCircuitBreakerOpen(agentType string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1.0
	}
	m.CircuitBreakerOpen.WithLabelValues(agentType).Set(v)
}

// LLMCallObserved records one completion call's token usage and outcome.
func (m *Metrics) LLMCallObserved(model, status string, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(model, status).Inc()
	if promptTokens > 0 {
		m.LLMTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// SetPendingCounts reflects the orchestrator's pending-map sizes.
func (m *Metrics) SetPendingCounts(questions, subAgents int) {
	if m == nil {
		return
	}
	m.PendingQuestions.Set(float64(questions))
	m.PendingSubAgents.Set(float64(subAgents))
}
