package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Business metrics
	ActiveRoomsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_rooms_total",
			Help: "Number of rooms with at least one live session",
		},
		[]string{"service"},
	)

	RoomsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rooms_created_total",
			Help: "Total number of rooms created",
		},
		[]string{"service"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service", "role"},
	)

	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_refresh_cycles_total",
			Help: "Location refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	LocationWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_writes_total",
			Help: "Location write-through attempts",
		},
		[]string{"status"},
	)

	DeclinationLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "declination_lookups_total",
			Help: "Magnetic declination lookups by source",
		},
		[]string{"source"},
	)

	HeadingUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heading_updates_total",
			Help: "Heading updates sent to devices",
		},
	)

	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "change_events_dropped_total",
			Help: "Change events dropped on slow subscribers",
		},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(service, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(service, queue string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesPublished.WithLabelValues(service, queue, status).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(service, queue string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesConsumed.WithLabelValues(service, queue, status).Inc()
}

// Refresh cycle outcomes
const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// RecordRefreshCycle records one location refresh cycle
func RecordRefreshCycle(outcome string) {
	RefreshCyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordLocationWrite records a location write-through
func RecordLocationWrite(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	LocationWritesTotal.WithLabelValues(status).Inc()
}

// RecordDeclinationLookup records where a declination value came from: cache, remote, fallback
func RecordDeclinationLookup(source string) {
	DeclinationLookupsTotal.WithLabelValues(source).Inc()
}
