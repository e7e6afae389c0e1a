// Package observability provides the Prometheus metrics of the messenger.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "messenger"

// Metrics holds every collector. Collectors are registered on the registerer
// given to NewMetrics so tests can use a private registry.
type Metrics struct {
	MessagesCreated  *prometheus.CounterVec
	MessagesRejected *prometheus.CounterVec
	MessagesViewed   *prometheus.CounterVec
	MessagesExpired  prometheus.Counter
	MessagesCensored prometheus.Counter
	IDCollisions     prometheus.Counter

	ProcessCPUPercent prometheus.Gauge
	ProcessRSSBytes   prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_created_total",
			Help:      "Total number of stored messages",
		}, []string{"theme"}),
		MessagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Total number of creation requests failing validation",
		}, []string{"reason"}),
		MessagesViewed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_viewed_total",
			Help:      "Total number of successful message lookups",
		}, []string{"client"}),
		MessagesExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_expired_total",
			Help:      "Total number of messages purged after their time-to-live",
		}),
		MessagesCensored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_censored_total",
			Help:      "Total number of messages where moderation masked words",
		}),
		IDCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "id_collisions_total",
			Help:      "Total number of generated identifiers that were already taken",
		}),
		ProcessCPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the server process as sampled by the monitor",
		}),
		ProcessRSSBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the server process as sampled by the monitor",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// NewNopMetrics registers on a throwaway registry.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
