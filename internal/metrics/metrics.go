package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	streamsTotal        *prometheus.CounterVec
	streamsActive       prometheus.Gauge
	ffmpegProcesses     prometheus.Gauge
	bytesDelivered      *prometheus.CounterVec
	segmentRespawns     prometheus.Counter
	negotiationFailures *prometheus.CounterVec
	deliveryDuration    *prometheus.HistogramVec
}

// New creates a new metrics instance
func New() *Metrics {
	m := &Metrics{
		streamsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaserver_streams_total",
				Help: "Total number of streams started by job type",
			},
			[]string{"type"},
		),
		streamsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediaserver_streams_active",
				Help: "Number of currently active streams",
			},
		),
		ffmpegProcesses: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediaserver_ffmpeg_processes_active",
				Help: "Number of currently running FFmpeg processes",
			},
		),
		bytesDelivered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaserver_bytes_delivered_total",
				Help: "Total bytes delivered to clients by job type",
			},
			[]string{"type"},
		),
		segmentRespawns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mediaserver_segment_respawns_total",
				Help: "Total encoder respawns caused by segment jumps",
			},
		),
		negotiationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaserver_negotiation_failures_total",
				Help: "Total capability negotiation failures by kind",
			},
			[]string{"kind"},
		),
		deliveryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediaserver_delivery_duration_seconds",
				Help:    "Duration of delivery requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~2.5 minutes
			},
			[]string{"handler"},
		),
	}

	return m
}

// IncrementStreamsTotal increments the streams counter for a job type
func (m *Metrics) IncrementStreamsTotal(jobType string) {
	m.streamsTotal.WithLabelValues(jobType).Inc()
}

// IncrementStreamsActive increments the active streams gauge
func (m *Metrics) IncrementStreamsActive() {
	m.streamsActive.Inc()
}

// DecrementStreamsActive decrements the active streams gauge
func (m *Metrics) DecrementStreamsActive() {
	m.streamsActive.Dec()
}

// IncrementFFmpegProcesses increments the FFmpeg processes gauge
func (m *Metrics) IncrementFFmpegProcesses() {
	m.ffmpegProcesses.Inc()
}

// DecrementFFmpegProcesses decrements the FFmpeg processes gauge
func (m *Metrics) DecrementFFmpegProcesses() {
	m.ffmpegProcesses.Dec()
}

// AddBytesDelivered adds delivered bytes for a job type
func (m *Metrics) AddBytesDelivered(jobType string, bytes float64) {
	m.bytesDelivered.WithLabelValues(jobType).Add(bytes)
}

// IncrementSegmentRespawns increments the segment respawn counter
func (m *Metrics) IncrementSegmentRespawns() {
	m.segmentRespawns.Inc()
}

// IncrementNegotiationFailures increments the negotiation failures counter
func (m *Metrics) IncrementNegotiationFailures(kind string) {
	m.negotiationFailures.WithLabelValues(kind).Inc()
}

// RecordDeliveryDuration records the duration of a delivery request
func (m *Metrics) RecordDeliveryDuration(handler string, seconds float64) {
	m.deliveryDuration.WithLabelValues(handler).Observe(seconds)
}
