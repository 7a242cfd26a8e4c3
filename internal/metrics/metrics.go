package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"drainwatch.sh/internal/aggregate"
)

var (
	// Ingest metrics
	IngestBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drainwatch_ingest_batches_total",
			Help: "Total number of ingest batches applied",
		},
	)

	IngestRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drainwatch_ingest_records_total",
			Help: "Total number of records accepted by ingest",
		},
		[]string{"kind"},
	)

	IngestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drainwatch_ingest_errors_total",
			Help: "Total number of records rejected by ingest",
		},
		[]string{"kind"},
	)

	// State gauges
	SensorsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drainwatch_sensors",
			Help: "Number of sensors per derived status",
		},
		[]string{"status"},
	)

	AlertsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drainwatch_alerts",
			Help: "Number of alerts per lifecycle state",
		},
		[]string{"state"},
	)

	StateVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drainwatch_state_version",
			Help: "Current view-model state version",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drainwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drainwatch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveIngest records the outcome of one ingest batch.
func ObserveIngest(acceptedReadings, acceptedAlerts, rejected int) {
	IngestBatchesTotal.Inc()
	IngestRecordsTotal.WithLabelValues("reading").Add(float64(acceptedReadings))
	IngestRecordsTotal.WithLabelValues("alert").Add(float64(acceptedAlerts))
	if rejected > 0 {
		IngestErrorsTotal.WithLabelValues("record").Add(float64(rejected))
	}
}

// ObserveState publishes the current system rollup and state version.
func ObserveState(agg aggregate.SystemAggregate, version uint64) {
	SensorsByStatus.WithLabelValues("normal").Set(float64(agg.System.Sensors.Normal))
	SensorsByStatus.WithLabelValues("warning").Set(float64(agg.System.Sensors.Warning))
	SensorsByStatus.WithLabelValues("critical").Set(float64(agg.System.Sensors.Critical))
	SensorsByStatus.WithLabelValues("offline").Set(float64(agg.System.Sensors.Offline))

	AlertsByState.WithLabelValues("active").Set(float64(agg.System.Alerts.Active))
	AlertsByState.WithLabelValues("acknowledged").Set(float64(agg.System.Alerts.Acknowledged))
	AlertsByState.WithLabelValues("resolved").Set(float64(agg.System.Alerts.Resolved))

	StateVersion.Set(float64(version))
}
