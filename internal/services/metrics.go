package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// Domain metrics. They complement the HTTP metrics of the middleware package
// and are exposed on the same /metrics endpoint.
var (
	feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smm_feedback_total",
			Help: "Feedback recorded, by kind.",
		},
		[]string{"kind"},
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smm_agent_decisions_total",
			Help: "Agent decisions recorded, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smm_item_transitions_total",
			Help: "Content item status transitions, by source and target status.",
		},
		[]string{"from", "to"},
	)

	breakerOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smm_agent_circuit_breaker_open",
			Help: "1 when the last evaluated circuit breaker state was open.",
		},
	)

	approvalRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smm_agent_approval_rate_7d",
			Help: "Last computed 7-day approval rate.",
		},
	)
)

func init() {
	prometheus.MustRegister(feedbackTotal, decisionsTotal, transitionsTotal, breakerOpen, approvalRate)
}

func outcomeLabel(o *domain.Outcome) string {
	if o == nil {
		return "unset"
	}
	return string(*o)
}
