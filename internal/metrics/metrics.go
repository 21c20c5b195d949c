package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tourgate",
		Name:      "tool_executions_total",
		Help:      "Tool executions by tool name and outcome.",
	}, []string{"tool", "outcome"})

	chatRounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tourgate",
		Name:      "chat_rounds_total",
		Help:      "Chat tool-loop rounds executed.",
	})

	quotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tourgate",
		Name:      "quota_decisions_total",
		Help:      "Quota admission decisions.",
	}, []string{"decision"})

	mcpSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tourgate",
		Name:      "mcp_active_sessions",
		Help:      "Currently open protocol sessions.",
	})
)

// ObserveToolExecution counts one tool execution.
func ObserveToolExecution(tool string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	toolExecutions.WithLabelValues(tool, outcome).Inc()
}

// ObserveChatRound counts one chat-loop round.
func ObserveChatRound() {
	chatRounds.Inc()
}

// ObserveQuotaDecision counts one admission decision.
func ObserveQuotaDecision(allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	quotaDecisions.WithLabelValues(decision).Inc()
}

// SetActiveSessions tracks the protocol session count.
func SetActiveSessions(n int) {
	mcpSessions.Set(float64(n))
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
