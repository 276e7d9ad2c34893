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

	answersTotal      *prometheus.CounterVec
	retrievedPassages *prometheus.HistogramVec
	confidenceLevels  *prometheus.CounterVec
	answerDuration    *prometheus.HistogramVec
	feedbackSubmitted *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openchat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openchat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "openchat",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openchat",
			Subsystem: "engine",
			Name:      "answers_total",
			Help:      "Total answer requests by outcome.",
		},
		[]string{"service", "endpoint", "outcome"},
	)
	retrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openchat",
			Subsystem: "engine",
			Name:      "retrieved_passages",
			Help:      "Distribution of passages cited per answered request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	confidenceLevels := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openchat",
			Subsystem: "engine",
			Name:      "confidence_level_total",
			Help:      "Total answers by reported confidence level.",
		},
		[]string{"service", "endpoint", "level"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openchat",
			Subsystem: "engine",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer generation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	feedbackSubmitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openchat",
			Subsystem: "feedback",
			Name:      "submitted_total",
			Help:      "Total feedback submissions accepted by kind.",
		},
		[]string{"service", "kind"},
	)
	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		retrievedPassages,
		confidenceLevels,
		answerDuration,
		feedbackSubmitted,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		answersTotal:      answersTotal,
		retrievedPassages: retrievedPassages,
		confidenceLevels:  confidenceLevels,
		answerDuration:    answerDuration,
		feedbackSubmitted: feedbackSubmitted,
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
	case strings.HasPrefix(path, "/v1/conversations/"):
		return "/v1/conversations/{conversation_id}/turns"
	default:
		return path
	}
}

// RecordAnswer tracks one completed answer request. A request that cites no
// passages counts as no_evidence, everything else as answered.
func (m *HTTPServerMetrics) RecordAnswer(service, endpoint string, sourceCount int, confidenceLevel string, duration time.Duration) {
	outcome := "answered"
	if sourceCount == 0 {
		outcome = "no_evidence"
	}
	m.answersTotal.WithLabelValues(service, endpoint, outcome).Inc()
	m.retrievedPassages.WithLabelValues(service, endpoint).Observe(float64(sourceCount))
	m.answerDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if confidenceLevel == "" {
		confidenceLevel = "unknown"
	}
	m.confidenceLevels.WithLabelValues(service, endpoint, confidenceLevel).Inc()
}

func (m *HTTPServerMetrics) RecordAnswerError(service, endpoint string) {
	m.answersTotal.WithLabelValues(service, endpoint, "error").Inc()
}

func (m *HTTPServerMetrics) RecordFeedbackSubmitted(service, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.feedbackSubmitted.WithLabelValues(service, kind).Inc()
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
