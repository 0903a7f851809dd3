package suppression

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks engine activity.
type Metrics struct {
	decisions  *prometheus.CounterVec
	pauseTrips prometheus.Counter
	inFlight   prometheus.Gauge
}

// NewMetrics registers the engine's collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "suppression",
			Name:      "decisions_total",
			Help:      "Suppression decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
		pauseTrips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "suppression",
			Name:      "pause_trips_total",
			Help:      "Times a persistence fault tripped the blanket-suppress pause.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "notify",
			Subsystem: "suppression",
			Name:      "in_flight",
			Help:      "Envelopes currently being decided.",
		}),
	}
}

// RecordDecision counts one decision.
func (m *Metrics) RecordDecision(outcome Outcome, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(outcome), reason).Inc()
}

// RecordPauseTrip counts one breaker trip.
func (m *Metrics) RecordPauseTrip() {
	if m == nil {
		return
	}
	m.pauseTrips.Inc()
}

func (m *Metrics) trackInFlight(delta float64) {
	if m == nil {
		return
	}
	m.inFlight.Add(delta)
}
