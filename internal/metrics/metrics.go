package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the API and the relay.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	RequestsCreated    *prometheus.CounterVec
	RequestTransitions *prometheus.CounterVec
	DonationsCompleted prometheus.Counter
	TokensAwarded      prometheus.Counter

	NotificationsPublished *prometheus.CounterVec
	OutboxProcessed        *prometheus.CounterVec
}

// New registers every collector with reg. Pass prometheus.DefaultRegisterer
// in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blood_request_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blood_request_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),

		RequestsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blood_request_requests_created_total",
			Help: "Blood requests created by urgency",
		}, []string{"urgency"}),

		RequestTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blood_request_transitions_total",
			Help: "Request lifecycle actions by kind",
		}, []string{"action"}), // accept, arrive, cancel

		DonationsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "blood_request_donations_completed_total",
			Help: "Donations recorded as completed",
		}),

		TokensAwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "blood_request_tokens_awarded_total",
			Help: "Reward tokens granted to donors",
		}),

		NotificationsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blood_request_notifications_published_total",
			Help: "Relay deliveries by outlet and result",
		}, []string{"outlet", "result"}),

		OutboxProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blood_request_outbox_events_processed_total",
			Help: "Outbox rows handled by the relay by result",
		}, []string{"result"}), // published, failed, invalid
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncrementRequestCreated(urgency string) {
	if m != nil {
		m.RequestsCreated.WithLabelValues(urgency).Inc()
	}
}

func (m *Metrics) IncrementTransition(action string) {
	if m != nil {
		m.RequestTransitions.WithLabelValues(action).Inc()
	}
}

// RecordDonation counts one completed donation and the tokens it earned.
func (m *Metrics) RecordDonation(tokens int) {
	if m == nil {
		return
	}
	m.DonationsCompleted.Inc()
	m.TokensAwarded.Add(float64(tokens))
}

func (m *Metrics) IncrementPublished(outlet string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.NotificationsPublished.WithLabelValues(outlet, result).Inc()
}

func (m *Metrics) IncrementOutbox(result string) {
	if m != nil {
		m.OutboxProcessed.WithLabelValues(result).Inc()
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
