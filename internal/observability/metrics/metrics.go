package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking lifecycle.
type BookingMetrics struct {
	createdTotal      *prometheus.CounterVec
	rejectedTotal     *prometheus.CounterVec
	decisionsTotal    *prometheus.CounterVec
	expiredTotal      prometheus.Counter
	slotQueryDuration *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinivo",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Booking requests accepted, by initial status and unit",
		}, []string{"status", "unit"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinivo",
			Subsystem: "booking",
			Name:      "rejected_total",
			Help:      "Booking submissions rejected, by reason",
		}, []string{"reason"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinivo",
			Subsystem: "booking",
			Name:      "decisions_total",
			Help:      "Decision attempts, by action and outcome",
		}, []string{"action", "outcome"}),
		expiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinivo",
			Subsystem: "booking",
			Name:      "expired_total",
			Help:      "Booking requests lapsed past their confirm deadline",
		}),
		slotQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinivo",
			Subsystem: "booking",
			Name:      "slot_query_seconds",
			Help:      "Latency of slot availability queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"unit"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.rejectedTotal, m.decisionsTotal, m.expiredTotal, m.slotQueryDuration)
	return m
}

func (m *BookingMetrics) ObserveCreated(status, unit string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(status, unit).Inc()
}

func (m *BookingMetrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveDecision(action, outcome string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *BookingMetrics) ObserveExpired(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.expiredTotal.Add(float64(count))
}

func (m *BookingMetrics) ObserveSlotQuery(unit string, seconds float64) {
	if m == nil {
		return
	}
	m.slotQueryDuration.WithLabelValues(unit).Observe(seconds)
}
