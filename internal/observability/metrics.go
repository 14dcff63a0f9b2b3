package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vistrackd",
		Name:      "frames_processed_total",
		Help:      "Total number of frames processed",
	}, []string{"stream_id"})

	RegionsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vistrackd",
		Name:      "regions_detected_total",
		Help:      "Total number of regions detected",
	}, []string{"stream_id", "object_type"})

	TrackEventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vistrackd",
		Name:      "track_events_emitted_total",
		Help:      "Total number of track lifecycle events emitted",
	}, []string{"stream_id", "kind"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vistrackd",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vistrackd",
		Name:      "queue_depth",
		Help:      "Number of pending frame tasks in queue",
	})

	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vistrackd",
		Name:      "active_streams",
		Help:      "Number of currently active video streams",
	})

	ActiveTracks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vistrackd",
		Name:      "active_tracks",
		Help:      "Number of live tracks per stream",
	}, []string{"stream_id"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vistrackd",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vistrackd",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
