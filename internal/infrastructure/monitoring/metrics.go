package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grabpic/grabpic-api/pkg/constants"
)

// Admission results used as the "result" label.
const (
	AdmissionAllowed    = "allowed"
	AdmissionDenied     = "denied"
	AdmissionFailOpen   = "fail_open"
	AdmissionFailClosed = "fail_closed"
)

// Metrics manages the Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	AdmissionDecisions    *prometheus.CounterVec
	AdmissionStoreErrors  *prometheus.CounterVec
	AdmissionStoreLatency *prometheus.HistogramVec
	BodyRejections        *prometheus.CounterVec
	PhotosEnqueued        *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AdmissionDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "admission_decisions_total",
				Help:      "Admission controller decisions by traffic class.",
			},
			[]string{"class", "result"},
		),
		AdmissionStoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "admission_store_errors_total",
				Help:      "Failed or timed out token bucket store calls.",
			},
			[]string{"class"},
		),
		AdmissionStoreLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "admission_store_latency_seconds",
				Help:      "Round trip time of token bucket store calls.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"class"},
		),
		BodyRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "body_rejections_total",
				Help:      "Requests rejected by the body size guard.",
			},
			[]string{"reason"},
		),
		PhotosEnqueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "photos_enqueued_total",
				Help:      "Photo processing messages published.",
			},
			[]string{"result"},
		),
	}
}

// RecordAdmission records one admission decision and, when the store was consulted, its latency.
func (m *Metrics) RecordAdmission(class, result string, storeLatency time.Duration) {
	if m == nil {
		return
	}
	m.AdmissionDecisions.WithLabelValues(class, result).Inc()
	if storeLatency > 0 {
		m.AdmissionStoreLatency.WithLabelValues(class).Observe(storeLatency.Seconds())
	}
	if result == AdmissionFailOpen || result == AdmissionFailClosed {
		m.AdmissionStoreErrors.WithLabelValues(class).Inc()
	}
}

// RecordBodyRejection records a 413 from the body size guard.
func (m *Metrics) RecordBodyRejection(reason string) {
	if m == nil {
		return
	}
	m.BodyRejections.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records one finished request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEnqueue records a publish attempt to the photo processing queue.
func (m *Metrics) RecordEnqueue(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PhotosEnqueued.WithLabelValues("error").Inc()
		return
	}
	m.PhotosEnqueued.WithLabelValues("ok").Inc()
}
