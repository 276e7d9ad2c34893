package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal     *prometheus.CounterVec
	processDuration  *prometheus.HistogramVec
	processInFlight  prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	retentionSweeps  *prometheus.CounterVec
	retentionRemoved *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openchat",
			Subsystem: "worker",
			Name:      "feedback_process_total",
			Help:      "Total processed feedback events by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openchat",
			Subsystem: "worker",
			Name:      "feedback_process_duration_seconds",
			Help:      "Feedback processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "openchat",
			Subsystem: "worker",
			Name:      "feedback_process_in_flight",
			Help:      "Number of in-flight feedback processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openchat",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between feedback submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	retentionSweeps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openchat",
			Subsystem: "worker",
			Name:      "retention_sweeps_total",
			Help:      "Total conversation retention sweeps by status.",
		},
		[]string{"service", "status"},
	)
	retentionRemoved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openchat",
			Subsystem: "worker",
			Name:      "retention_conversations_removed_total",
			Help:      "Total conversations removed by retention sweeps.",
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, retentionSweeps, retentionRemoved)

	return &WorkerMetrics{
		registry:         registry,
		processTotal:     processTotal,
		processDuration:  processDuration,
		processInFlight:  processInFlight,
		queueLag:         queueLag,
		retentionSweeps:  retentionSweeps,
		retentionRemoved: retentionRemoved,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartFeedback() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishFeedback(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordRetentionSweep(service string, removed int64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.retentionSweeps.WithLabelValues(service, status).Inc()
	if removed > 0 {
		m.retentionRemoved.WithLabelValues(service).Add(float64(removed))
	}
}
