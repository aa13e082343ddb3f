package fwriter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RESULT_OK    = "ok"
	RESULT_ERROR = "error"
	RESULT_FAULT = "fault"
)

type engineMetrics struct {
	requests          *prometheus.CounterVec
	opsDurations      *prometheus.HistogramVec
	writtenSizeBytes  prometheus.Histogram
	queueDepth        prometheus.Gauge
	streamOpens       prometheus.Counter
	abandonedRequests prometheus.Counter
}

func newEngineMetrics(registerer prometheus.Registerer, node string) *engineMetrics {
	m := &engineMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_requests_total",
			Help: "Requests completed, by mode and result.",
		}, []string{"mode", "result"}),

		opsDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engine_ops_durations_histogram_seconds",
			Help:    "Time from enqueue to completion.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 1.5, 30),
		}, []string{"mode"}),

		writtenSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_written_size_bytes",
			Help:    "size of write distributions.",
			Buckets: prometheus.ExponentialBuckets(16, 4, 10),
		}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_queue_depth",
			Help: "Requests queued, including the one in flight.",
		}),

		streamOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_stream_opens_total",
			Help: "Append streams opened, including reopens after the file was replaced.",
		}),

		abandonedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_abandoned_requests_total",
			Help: "Requests dropped because an earlier request in the batch faulted.",
		}),
	}

	if registerer == nil {
		return m
	}

	registerer = prometheus.WrapRegistererWith(prometheus.Labels{"node": node}, registerer)
	registerer.MustRegister(
		m.requests,
		m.opsDurations,
		m.writtenSizeBytes,
		m.queueDepth,
		m.streamOpens,
		m.abandonedRequests,
	)
	return m
}

func (m *engineMetrics) observe(req *Request, result string) {
	mode := req.Mode.String()
	m.requests.WithLabelValues(mode, result).Inc()
	m.opsDurations.WithLabelValues(mode).Observe(time.Since(req.enqueued).Seconds())
}
