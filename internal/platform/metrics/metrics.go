package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	AdmissionsTotal  *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	QuotaDeniedTotal prometheus.Counter
	GateDuration     prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AdmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scangate_admissions_total",
			Help: "Total admitted requests by caller kind",
		}, []string{"kind"}),
		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scangate_rejections_total",
			Help: "Total rejected requests by reason",
		}, []string{"reason"}),
		QuotaDeniedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scangate_quota_denied_total",
			Help: "Total guest requests denied by the daily quota",
		}),
		GateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scangate_gate_duration_ms",
			Help:    "Latency of admission decisions in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		}),
	}
}

// ObserveGate records the duration of one admission decision.
func (m *Metrics) ObserveGate(d time.Duration) {
	m.GateDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

// IncrementAdmitted increments the admissions counter for a caller kind.
func (m *Metrics) IncrementAdmitted(kind string) {
	m.AdmissionsTotal.WithLabelValues(kind).Inc()
}

// IncrementRejected increments the rejections counter for a reason.
func (m *Metrics) IncrementRejected(reason string) {
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}
