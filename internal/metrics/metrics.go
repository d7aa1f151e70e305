package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service's Prometheus collectors. All counters are
// registered on a dedicated registry so tests can instantiate the set
// without collisions.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPDuration *prometheus.HistogramVec

	CodesGenerated     prometheus.Counter
	ActivationAttempts *prometheus.CounterVec
	CodesRevoked       prometheus.Counter
	EmailsSent         *prometheus.CounterVec

	BatchItems      *prometheus.CounterVec
	BatchSizes      prometheus.Histogram
	DocumentUploads *prometheus.CounterVec

	RateLimitHits prometheus.Counter
}

// New creates and registers the collector set.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		CodesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "activation_codes_generated_total",
			Help: "Activation codes issued",
		}),
		ActivationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activation_attempts_total",
			Help: "Activation completion attempts by outcome",
		}, []string{"outcome"}),
		CodesRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "activation_codes_revoked_total",
			Help: "Activation codes revoked by admins",
		}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activation_emails_total",
			Help: "Activation emails by delivery outcome",
		}, []string{"outcome"}),

		BatchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_batch_items_total",
			Help: "Batch sync items by outcome",
		}, []string{"outcome"}),
		BatchSizes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sync_batch_size",
			Help:    "Items per batch sync request",
			Buckets: []float64{1, 5, 10, 20, 35, 50},
		}),
		DocumentUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "document_uploads_total",
			Help: "Document upload lifecycle transitions",
		}, []string{"stage"}),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the activation rate limiter",
		}),
	}
}
