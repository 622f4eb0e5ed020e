// Package metrics exposes Prometheus counters for the distribution engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitfsorg/libreceipt-go/account"
)

const namespace = "receipt"

// Metrics holds the engine's collectors.
type Metrics struct {
	distributed    *prometheus.CounterVec
	claimed        *prometheus.CounterVec
	revenueEvents  prometheus.Counter
	claims         *prometheus.CounterVec
	deploymentFees *prometheus.CounterVec
	failures       *prometheus.CounterVec
	published      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		distributed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distributed_total",
			Help:      "Amount credited to claimable balances, by currency.",
		}, []string{"currency"}),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claimed_total",
			Help:      "Amount paid out by claims, by currency.",
		}, []string{"currency"}),
		revenueEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_events_total",
			Help:      "Revenue events appended to the log.",
		}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Successful claims, by currency.",
		}, []string{"currency"}),
		deploymentFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployment_fees_total",
			Help:      "Deployment fees split across bundle contributors, by currency.",
		}, []string{"currency"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_failures_total",
			Help:      "Engine calls that were rolled back, by operation.",
		}, []string{"op"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events handed to the dispatcher after commit, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.distributed, m.claimed, m.revenueEvents, m.claims,
			m.deploymentFees, m.failures, m.published)
	}
	return m
}

// Distributed records a revenue distribution of amount.
func (m *Metrics) Distributed(cur account.Currency, amount uint64) {
	if m == nil {
		return
	}
	m.distributed.WithLabelValues(cur.String()).Add(float64(amount))
	m.revenueEvents.Inc()
}

// DeploymentFee records a deployment fee split.
func (m *Metrics) DeploymentFee(cur account.Currency, amount uint64) {
	if m == nil {
		return
	}
	m.distributed.WithLabelValues(cur.String()).Add(float64(amount))
	m.deploymentFees.WithLabelValues(cur.String()).Add(float64(amount))
}

// Claimed records a successful claim.
func (m *Metrics) Claimed(cur account.Currency, amount uint64) {
	if m == nil {
		return
	}
	m.claimed.WithLabelValues(cur.String()).Add(float64(amount))
	m.claims.WithLabelValues(cur.String()).Inc()
}

// Failed records a rolled-back call.
func (m *Metrics) Failed(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op).Inc()
}

// Published records an event handed to the dispatcher.
func (m *Metrics) Published(kind string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(kind).Inc()
}
