package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the clinic workflow counters and histograms. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	bookingOutcomes *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	noteSaves       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Self-service booking requests by terminal state",
		}, []string{"state"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of payment gateway initiation calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		noteSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notes",
			Name:      "saves_total",
			Help:      "Clinical note saves by result",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Appointment emails by kind and status",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingOutcomes, m.gatewayLatency, m.noteSaves, m.notifications)
	return m
}

func (m *Metrics) ObserveBooking(state string) {
	if m == nil {
		return
	}
	m.bookingOutcomes.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveGateway(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(status(err)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveNoteSave(result string) {
	if m == nil {
		return
	}
	m.noteSaves.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
