package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
)

// DialogueMetrics exposes counters/histograms for the booking dialogue.
type DialogueMetrics struct {
	turnsTotal          *prometheus.CounterVec
	classifierFallbacks *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
	turnLatency         prometheus.Histogram
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total processed dialogue turns by resulting state and intent",
		}, []string{"state", "intent"}),
		classifierFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "dialogue",
			Name:      "classifier_fallbacks_total",
			Help:      "Falls back from the remote intent classifier to the rules",
		}, []string{"reason"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "dialogue",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "advisor",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one dialogue turn end to end",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.classifierFallbacks, m.bookingsTotal, m.turnLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(state dialogue.State, intent dialogue.Intent, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(string(state), string(intent)).Inc()
	m.turnLatency.Observe(elapsed.Seconds())
}

func (m *DialogueMetrics) ObserveClassifierFallback(reason string) {
	if m == nil {
		return
	}
	m.classifierFallbacks.WithLabelValues(reason).Inc()
}

func (m *DialogueMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}
