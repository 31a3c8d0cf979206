package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firewatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Ingestion metrics
	MessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_messages_consumed_total",
			Help: "Total number of uplink messages consumed from the broker",
		},
		[]string{"source"}, // source: mqtt, kafka
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_messages_dropped_total",
			Help: "Total number of uplink messages dropped before processing",
		},
		[]string{"reason"}, // reason: decode, queue_full
	)

	ReadingsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_readings_persisted_total",
			Help: "Total number of readings appended to the store",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_persist_failures_total",
			Help: "Total number of failed reading appends",
		},
	)

	StoreAppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "firewatch_store_append_duration_seconds",
			Help:    "Time taken to append a reading to the store",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Alerting metrics
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_alerts_emitted_total",
			Help: "Total number of alert events produced by rule evaluation",
		},
		[]string{"metric", "bound"},
	)

	// Broadcast metrics
	BroadcastEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_broadcast_events_total",
			Help: "Total number of events handed to the live broadcaster",
		},
		[]string{"type"}, // type: reading, alert
	)

	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_broadcast_dropped_total",
			Help: "Total number of events dropped because the broadcast queue was full",
		},
	)

	SubscribersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_subscribers_connected",
			Help: "Number of currently connected live subscribers",
		},
	)

	// Dispatch metrics
	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_dispatch_queue_depth",
			Help: "Total number of readings waiting in dispatch queues",
		},
	)

	DispatchQueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_dispatch_queue_capacity",
			Help: "Combined capacity of the dispatch queues",
		},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
