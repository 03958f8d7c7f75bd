package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FacesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected",
	}, []string{"operation"})

	FacesRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "faces_registered_total",
		Help:      "Total number of face embeddings enrolled in the gallery",
	})

	FacesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "faces_matched_total",
		Help:      "Total number of detections matched against the gallery",
	})

	RegistrationRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "registration_rejected_total",
		Help:      "Registrations rejected by the single-face gate",
	}, []string{"reason"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nova",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	PublicationsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "publications_analyzed_total",
		Help:      "Total number of publications analyzed",
	})

	AnalysisQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nova",
		Name:      "analysis_queue_depth",
		Help:      "Number of pending publication analysis jobs in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nova",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nova",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
