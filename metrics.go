package slotx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry's pass counters. A nil *Metrics is valid and
// records nothing, so instrumentation stays optional.
type Metrics struct {
	attaches       prometheus.Counter
	detaches       prometheus.Counter
	servicedTotal  *prometheus.CounterVec
	drainedTotal   prometheus.Counter
	encodeFailures prometheus.Counter
}

// NewMetrics creates pass counters registered with reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attaches: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotx_attaches_total",
			Help: "Nodes linked into the registry.",
		}),
		detaches: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotx_detaches_total",
			Help: "Nodes unlinked from the registry.",
		}),
		servicedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slotx_serviced_total",
			Help: "Nodes serviced by read passes, by outcome (decoded, missing, fallback).",
		}, []string{"outcome"}),
		drainedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotx_drained_writes_total",
			Help: "Dirty nodes drained by write passes.",
		}),
		encodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotx_encode_failures_total",
			Help: "Drain attempts that failed to encode and stayed dirty.",
		}),
	}
}

func (m *Metrics) attached() {
	if m != nil {
		m.attaches.Inc()
	}
}

func (m *Metrics) detached() {
	if m != nil {
		m.detaches.Inc()
	}
}

func (m *Metrics) serviced(outcome serviceOutcome) {
	if m != nil {
		m.servicedTotal.WithLabelValues(outcome.String()).Inc()
	}
}

func (m *Metrics) drained() {
	if m != nil {
		m.drainedTotal.Inc()
	}
}

func (m *Metrics) encodeFailed() {
	if m != nil {
		m.encodeFailures.Inc()
	}
}
