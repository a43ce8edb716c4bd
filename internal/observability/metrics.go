package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	MessagesTotal     *prometheus.CounterVec
	SubQuestionsTotal prometheus.Counter
	BrainRequests     *prometheus.CounterVec
	BreakerState      prometheus.Gauge
	DegradedResponses prometheus.Counter
	AuthEvents        *prometheus.CounterVec
	HandleLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by classified intent.",
		}, []string{"intent"}),
		SubQuestionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subquestions_total",
			Help:      "Sub-questions dispatched to the model backend.",
		}),
		BrainRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brain_requests_total",
			Help:      "Model backend calls by outcome.",
		}, []string{"outcome"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "brain_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
		DegradedResponses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_responses_total",
			Help:      "Replies containing at least one stub answer.",
		}),
		AuthEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication gate events by type.",
		}, []string{"event"}),
		HandleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_latency_ms",
			Help:      "End-to-end message handling latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}),
	}
}

func (m *Metrics) ObserveHandleLatency(d time.Duration) {
	m.HandleLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
