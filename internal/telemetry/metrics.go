// Package telemetry holds the Prometheus metrics and the OpenTelemetry
// tracer provider.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/indexer"
)

const namespace = "novelbuddy"

// MetricsServiceName is the AppContext service holding *Metrics.
const MetricsServiceName = "telemetry.metrics"

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	chats        *prometheus.CounterVec
	generation   prometheus.Histogram
	contextUsed  prometheus.Histogram
	fileOps      *prometheus.CounterVec
	patches      *prometheus.CounterVec
	commits      prometheus.Counter
	indexJobs    *prometheus.CounterVec
	indexDropped prometheus.Counter
}

// Compile-time interface checks.
var (
	_ indexer.Recorder = (*Metrics)(nil)
	_ fileops.Observer = (*Metrics)(nil)
)

// NewMetrics creates and registers every collector, including the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		chats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat turns by classified content type and outcome.",
		}, []string{"content_type", "outcome"}),
		generation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time from request to the end of the generation stream.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}),
		contextUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_tokens",
			Help:      "Estimated tokens of assembled context per request.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 9),
		}),
		fileOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_operations_total",
			Help:      "Applied file operations by kind and result.",
		}, []string{"operation", "success"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patch_matches_total",
			Help:      "Successful patches by matching strategy.",
		}, []string{"strategy"}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Batches committed to version control.",
		}),
		indexJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_jobs_total",
			Help:      "Background index jobs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		indexDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_jobs_dropped_total",
			Help:      "Index jobs dropped because the queue was full.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.chats, m.generation, m.contextUsed,
		m.fileOps, m.patches, m.commits, m.indexJobs, m.indexDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveHTTP records one served request. route is the matched pattern,
// never the raw path, to keep cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveChat records a finished chat turn.
func (m *Metrics) ObserveChat(contentType, outcome string, generation time.Duration, contextTokens int) {
	m.chats.WithLabelValues(contentType, outcome).Inc()
	if generation > 0 {
		m.generation.Observe(generation.Seconds())
	}
	if contextTokens > 0 {
		m.contextUsed.Observe(float64(contextTokens))
	}
}

// IndexJob implements indexer.Recorder.
func (m *Metrics) IndexJob(remove, ok bool) {
	kind, outcome := "index", "ok"
	if remove {
		kind = "remove"
	}
	if !ok {
		outcome = "failed"
	}
	m.indexJobs.WithLabelValues(kind, outcome).Inc()
}

// IndexDropped implements indexer.Recorder.
func (m *Metrics) IndexDropped() { m.indexDropped.Inc() }

// FileChanged implements fileops.Observer. Counting happens per batch.
func (m *Metrics) FileChanged(context.Context, fileops.Change) {}

// BatchApplied implements fileops.Observer.
func (m *Metrics) BatchApplied(_ context.Context, _ string, res fileops.BatchResult) {
	for _, r := range res.Results {
		m.fileOps.WithLabelValues(string(r.Operation), strconv.FormatBool(r.Success)).Inc()
		if r.Success && r.Operation == fileops.KindPatch {
			m.patches.WithLabelValues(string(r.Strategy)).Inc()
		}
	}
	if res.Committed {
		m.commits.Inc()
	}
}
