package runner

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relay/pkg/orchestrator"
	"relay/pkg/protocol"
)

// Metrics counts pipeline activity for Prometheus scraping.
type Metrics struct {
	registry *prometheus.Registry

	transitions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	blocked      prometheus.Counter
	autoResolved prometheus.Counter
	completed    prometheus.Counter
	warnings     prometheus.Counter
}

// NewMetrics creates and registers the relay metric set on a private
// registry, keeping the scrape output free of default Go collectors'
// noise when embedded in tests.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "transitions_total",
			Help:      "Committed role transitions, labeled by source and target role.",
		}, []string{"from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "gate_rejections_total",
			Help:      "Backward routings out of a review gate, labeled by gate.",
		}, []string{"gate"}),
		blocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "blocked_total",
			Help:      "Units of work that entered the blocked state.",
		}),
		autoResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "design_review_auto_resolved_total",
			Help:      "Design reviews force-passed after repeated rejection.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "completed_total",
			Help:      "Units of work that reached the completed state.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "warnings_total",
			Help:      "Best-effort side effects that failed (mode switch, report).",
		}),
	}
	reg.MustRegister(m.transitions, m.rejections, m.blocked, m.autoResolved, m.completed, m.warnings)
	return m
}

// Observe records one orchestrator event.
func (m *Metrics) Observe(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventTransition:
		m.transitions.WithLabelValues(string(ev.From), string(ev.To)).Inc()
		if ev.From.ReviewGate() && isBackward(ev.To) {
			m.rejections.WithLabelValues(string(ev.From)).Inc()
		}
		if ev.To == protocol.RoleCompleted {
			m.completed.Inc()
		}
	case orchestrator.EventBlocked:
		m.transitions.WithLabelValues(string(ev.From), string(ev.To)).Inc()
		m.blocked.Inc()
	case orchestrator.EventAutoResolved:
		m.autoResolved.Inc()
	case orchestrator.EventWarning:
		m.warnings.Inc()
	}
}

// isBackward reports whether target is an earlier pipeline phase, which
// out of a review gate means the gate rejected.
func isBackward(target protocol.Role) bool {
	switch target {
	case protocol.RolePlanner, protocol.RoleDesigner, protocol.RoleBuilder:
		return true
	}
	return false
}

// Handler returns the scrape handler for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr. Blocks; run it on its own goroutine.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
