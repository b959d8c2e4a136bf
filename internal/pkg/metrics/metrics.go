/*
Package metrics exposes Prometheus instruments for the session engine.

All recording methods are safe to call on a nil *Metrics, so core components can be
built without instrumentation in tests and tools.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	areasActive         prometheus.Gauge
	usersActive         prometheus.Gauge
	broadcastsTotal     prometheus.Counter
	deliveryFailures    prometheus.Counter
	phaseTransitions    prometheus.Counter
	responseResolutions *prometheus.CounterVec
	reaped              *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the instruments with reg. When reg is also a Gatherer, Handler
// serves it; otherwise Handler serves the default gatherer.
func New(reg prometheus.Registerer) *Metrics {
	promFactory := promauto.With(reg)

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Metrics{
		areasActive: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "hzarena_areas_active",
			Help: "Current number of registered areas",
		}),
		usersActive: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "hzarena_users_active",
			Help: "Current number of registered users",
		}),
		broadcastsTotal: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "hzarena_broadcasts_total",
			Help: "Total number of room broadcasts",
		}),
		deliveryFailures: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "hzarena_delivery_failures_total",
			Help: "Total number of per-recipient send failures during broadcasts",
		}),
		phaseTransitions: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "hzarena_phase_transitions_total",
			Help: "Total number of phase advances across all areas",
		}),
		responseResolutions: promFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hzarena_response_resolutions_total",
				Help: "Response requests resolved, labelled by outcome",
			},
			[]string{"status"},
		),
		reaped: promFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hzarena_reaped_total",
				Help: "Idle entities removed by the reaper, labelled by kind",
			},
			[]string{"kind"},
		),
		gatherer: gatherer,
	}
}

// Handler returns the HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) SetAreas(n int) {
	if m == nil {
		return
	}
	m.areasActive.Set(float64(n))
}

func (m *Metrics) SetUsers(n int) {
	if m == nil {
		return
	}
	m.usersActive.Set(float64(n))
}

func (m *Metrics) Broadcast(failures int) {
	if m == nil {
		return
	}
	m.broadcastsTotal.Inc()
	if failures > 0 {
		m.deliveryFailures.Add(float64(failures))
	}
}

func (m *Metrics) PhaseAdvanced() {
	if m == nil {
		return
	}
	m.phaseTransitions.Inc()
}

func (m *Metrics) ResponseResolved(status string) {
	if m == nil {
		return
	}
	m.responseResolutions.WithLabelValues(status).Inc()
}

func (m *Metrics) Reaped(kind string) {
	if m == nil {
		return
	}
	m.reaped.WithLabelValues(kind).Inc()
}
