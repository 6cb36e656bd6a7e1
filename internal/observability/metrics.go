package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API, worker, and scanner flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	wizardTransitionsTotal *prometheus.CounterVec
	itemsGeneratedTotal    *prometheus.CounterVec
	itemsFailedTotal       *prometheus.CounterVec
	generationDuration     *prometheus.HistogramVec
	itemsPublishedTotal    *prometheus.CounterVec
	workerInflight         *prometheus.GaugeVec
	retryScheduledTotal    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reelforge",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reelforge",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		wizardTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reelforge",
				Name:      "wizard_transitions_total",
				Help:      "Total number of wizard step transitions by mode, kind, and outcome.",
			},
			[]string{"mode", "kind", "outcome"},
		),
		itemsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reelforge",
				Name:      "items_generated_total",
				Help:      "Total number of campaign items generated successfully.",
			},
			[]string{"mode"},
		),
		itemsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reelforge",
				Name:      "items_failed_total",
				Help:      "Total number of campaign items that ended in failed state.",
			},
			[]string{"mode", "reason"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reelforge",
				Name:      "generation_duration_seconds",
				Help:      "Provider generation duration in seconds grouped by mode.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"mode"},
		),
		itemsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reelforge",
				Name:      "items_published_total",
				Help:      "Total number of campaign items pushed to the publish API.",
			},
			[]string{"mode"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "reelforge",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight generation jobs grouped by mode.",
			},
			[]string{"mode"},
		),
		retryScheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reelforge",
				Name:      "retry_scheduled_total",
				Help:      "Total number of campaign items scheduled for retry.",
			},
			[]string{"mode"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.wizardTransitionsTotal,
		m.itemsGeneratedTotal,
		m.itemsFailedTotal,
		m.generationDuration,
		m.itemsPublishedTotal,
		m.workerInflight,
		m.retryScheduledTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncWizardTransition(mode string, kind string, outcome string) {
	if m == nil {
		return
	}
	m.wizardTransitionsTotal.WithLabelValues(normalizeMode(mode), normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncItemGenerated(mode string) {
	if m == nil {
		return
	}
	m.itemsGeneratedTotal.WithLabelValues(normalizeMode(mode)).Inc()
}

func (m *Metrics) IncItemFailed(mode string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := normalizeLabel(reason)
	m.itemsFailedTotal.WithLabelValues(normalizeMode(mode), reasonLabel).Inc()
}

func (m *Metrics) ObserveGenerationDuration(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.generationDuration.WithLabelValues(normalizeMode(mode)).Observe(seconds)
}

func (m *Metrics) IncItemPublished(mode string) {
	if m == nil {
		return
	}
	m.itemsPublishedTotal.WithLabelValues(normalizeMode(mode)).Inc()
}

func (m *Metrics) IncWorkerInFlight(mode string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeMode(mode)).Inc()
}

func (m *Metrics) DecWorkerInFlight(mode string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeMode(mode)).Dec()
}

func (m *Metrics) IncRetryScheduled(mode string) {
	if m == nil {
		return
	}
	m.retryScheduledTotal.WithLabelValues(normalizeMode(mode)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeMode(mode string) string {
	normalized := strings.ToLower(strings.TrimSpace(mode))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func normalizeLabel(label string) string {
	normalized := strings.TrimSpace(strings.ToLower(label))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
