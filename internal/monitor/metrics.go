package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports dispatch and delivery counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	lines        prometheus.Counter
	decodeErrors prometheus.Counter
	matches      *prometheus.CounterVec
	flushes      *prometheus.CounterVec
	flushErrors  *prometheus.CounterVec
	flushed      *prometheus.CounterVec
	flushLatency *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg, or with
// the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elbfilter_lines_total",
			Help: "Access-log lines decoded successfully.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elbfilter_decode_errors_total",
			Help: "Access-log lines skipped because they could not be decoded.",
		}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elbfilter_matches_total",
			Help: "Records matched, per pipeline.",
		}, []string{"pipeline"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elbfilter_sink_flushes_total",
			Help: "Non-empty flushes attempted, per sink.",
		}, []string{"sink"}),
		flushErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elbfilter_sink_flush_errors_total",
			Help: "Flushes that failed to deliver, per sink.",
		}, []string{"sink"}),
		flushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elbfilter_sink_records_delivered_total",
			Help: "Records delivered to the destination, per sink.",
		}, []string{"sink"}),
		flushLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "elbfilter_sink_flush_duration_seconds",
			Help:    "Time spent delivering one batch, per sink.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"sink"}),
	}
	reg.MustRegister(m.lines, m.decodeErrors, m.matches, m.flushes, m.flushErrors, m.flushed, m.flushLatency)
	return m
}

// RecordLine counts one decoded line.
func (m *Metrics) RecordLine() {
	if m == nil {
		return
	}
	m.lines.Inc()
}

// RecordDecodeError counts one skipped line.
func (m *Metrics) RecordDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// RecordMatch counts one record routed to pipeline.
func (m *Metrics) RecordMatch(pipeline string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(pipeline).Inc()
}

// ObserveFlush records the outcome of delivering a batch of n records.
func (m *Metrics) ObserveFlush(sink string, n int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(sink).Inc()
	m.flushLatency.WithLabelValues(sink).Observe(took.Seconds())
	if err != nil {
		m.flushErrors.WithLabelValues(sink).Inc()
		return
	}
	m.flushed.WithLabelValues(sink).Add(float64(n))
}

// Handler serves the metrics gathered by g, or by the default gatherer
// when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
