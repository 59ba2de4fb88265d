package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking and payment flow.
type BookingMetrics struct {
	transitions    *prometheus.CounterVec
	polls          *prometheus.CounterVec
	manualChecks   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	creditsGranted prometheus.Counter
	activeSessions prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "banyan",
			Subsystem: "booking",
			Name:      "stage_transitions_total",
			Help:      "Booking stage transitions",
		}, []string{"from", "to"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "banyan",
			Subsystem: "payment",
			Name:      "poll_total",
			Help:      "Automatic payment verification ticks by outcome",
		}, []string{"outcome"}),
		manualChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "banyan",
			Subsystem: "payment",
			Name:      "manual_check_total",
			Help:      "Manual payment checks by outcome",
		}, []string{"outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "banyan",
			Subsystem: "payment",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of payment verification requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		creditsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "banyan",
			Subsystem: "credits",
			Name:      "sessions_granted_total",
			Help:      "Counseling sessions credited to clients",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "banyan",
			Subsystem: "booking",
			Name:      "active_sessions",
			Help:      "Open booking sessions",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.polls, m.manualChecks, m.gatewayLatency, m.creditsGranted, m.activeSessions)
	return m
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *BookingMetrics) ObservePoll(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveManualCheck(outcome string) {
	if m == nil {
		return
	}
	m.manualChecks.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveGatewayLatency(source string, seconds float64) {
	if m == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(source).Observe(seconds)
}

func (m *BookingMetrics) ObserveCredits(sessions int) {
	if m == nil {
		return
	}
	m.creditsGranted.Add(float64(sessions))
}

func (m *BookingMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *BookingMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
