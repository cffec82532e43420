package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	detectionsTotal  *prometheus.CounterVec
	dispatchAttempts *prometheus.CounterVec
	relayReconnects  prometheus.Counter
	rejectedSessions prometheus.Counter

	// Gauges
	activeStreamSessions prometheus.Gauge
	fanoutClients        prometheus.Gauge

	// Histograms
	inferenceDuration prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		detectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fallwatch_detections_total",
			Help: "Total number of classified frames by status",
		}, []string{"status"}),

		dispatchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fallwatch_dispatch_attempts_total",
			Help: "Total number of device command dispatches by outcome",
		}, []string{"outcome"}),

		relayReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fallwatch_relay_reconnects_total",
			Help: "Total number of upstream stream reconnections",
		}),

		rejectedSessions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fallwatch_stream_sessions_rejected_total",
			Help: "Total number of viewers rejected at the session cap",
		}),

		activeStreamSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fallwatch_stream_sessions_active",
			Help: "Number of currently admitted stream viewers",
		}),

		fanoutClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fallwatch_fanout_clients",
			Help: "Number of connected websocket event viewers",
		}),

		inferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fallwatch_inference_duration_seconds",
			Help:    "Duration of one frame classification",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}

func (c *PrometheusCollector) RecordDetection(status string) {
	c.detectionsTotal.WithLabelValues(status).Inc()
}

func (c *PrometheusCollector) RecordDispatch(outcome string) {
	c.dispatchAttempts.WithLabelValues(outcome).Inc()
}

func (c *PrometheusCollector) RecordRelayReconnect() {
	c.relayReconnects.Inc()
}

func (c *PrometheusCollector) RecordRejectedSession() {
	c.rejectedSessions.Inc()
}

func (c *PrometheusCollector) SetActiveStreamSessions(n int) {
	c.activeStreamSessions.Set(float64(n))
}

func (c *PrometheusCollector) SetFanoutClients(n int) {
	c.fanoutClients.Set(float64(n))
}

func (c *PrometheusCollector) ObserveInferenceDuration(d time.Duration) {
	c.inferenceDuration.Observe(d.Seconds())
}
