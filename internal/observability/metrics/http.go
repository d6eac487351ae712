package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal     *prometheus.CounterVec
	ragRetrievalHitTotal *prometheus.CounterVec
	ragNoContextTotal    *prometheus.CounterVec
	ragSources           *prometheus.HistogramVec
	ragDuration          *prometheus.HistogramVec
	ragRounds            *prometheus.HistogramVec
	ragRewritesTotal     *prometheus.CounterVec
	ragDegradedTotal     *prometheus.CounterVec
	gradeTotal           *prometheus.CounterVec
	routeTotal           *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "norman",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "norman",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful retrieval pipeline runs.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total runs that produced at least one cited source.",
		},
		[]string{"service", "endpoint"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total runs answered without retrieved sources.",
		},
		[]string{"service", "endpoint"},
	)
	ragSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "sources",
			Help:      "Distribution of cited sources per successful run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Full pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	ragRounds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "correction_rounds",
			Help:      "Distribution of retrieval rounds per run.",
			Buckets:   []float64{1, 2, 3},
		},
		[]string{"service", "endpoint"},
	)
	ragRewritesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "rewrites_total",
			Help:      "Total query rewrites issued by the correction loop.",
		},
		[]string{"service", "endpoint"},
	)
	ragDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "degraded_total",
			Help:      "Total runs that degraded to generation on loop timeout.",
		},
		[]string{"service", "endpoint"},
	)
	gradeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "grade_total",
			Help:      "Total per-passage relevance verdicts by outcome.",
		},
		[]string{"service", "verdict"},
	)
	routeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "norman",
			Subsystem: "rag",
			Name:      "route_total",
			Help:      "Total runs by routing decision.",
		},
		[]string{"service", "route"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragRetrievalHitTotal,
		ragNoContextTotal,
		ragSources,
		ragDuration,
		ragRounds,
		ragRewritesTotal,
		ragDegradedTotal,
		gradeTotal,
		routeTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		ragRequestsTotal:     ragRequestsTotal,
		ragRetrievalHitTotal: ragRetrievalHitTotal,
		ragNoContextTotal:    ragNoContextTotal,
		ragSources:           ragSources,
		ragDuration:          ragDuration,
		ragRounds:            ragRounds,
		ragRewritesTotal:     ragRewritesTotal,
		ragDegradedTotal:     ragDegradedTotal,
		gradeTotal:           gradeTotal,
		routeTotal:           routeTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/laws/"):
		return "/v1/laws/{law_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordPipelineRun(service, endpoint string, sourceCount, rounds, rewrites int, degraded bool, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.ragSources.WithLabelValues(service, endpoint).Observe(float64(sourceCount))
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if rounds > 0 {
		m.ragRounds.WithLabelValues(service, endpoint).Observe(float64(rounds))
	}
	if rewrites > 0 {
		m.ragRewritesTotal.WithLabelValues(service, endpoint).Add(float64(rewrites))
	}
	if degraded {
		m.ragDegradedTotal.WithLabelValues(service, endpoint).Inc()
	}

	if sourceCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordGrades(service string, relevant, notRelevant int) {
	if relevant > 0 {
		m.gradeTotal.WithLabelValues(service, "relevant").Add(float64(relevant))
	}
	if notRelevant > 0 {
		m.gradeTotal.WithLabelValues(service, "not_relevant").Add(float64(notRelevant))
	}
}

func (m *HTTPServerMetrics) RecordRoute(service, route string) {
	if route == "" {
		route = "unknown"
	}
	m.routeTotal.WithLabelValues(service, route).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
