// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the service publishes, registered on a
// private registry so tests can construct collectors independently.
type Collector struct {
	reg *prometheus.Registry

	RowsRead    prometheus.Counter
	RowsSkipped *prometheus.CounterVec // reason label

	TrainingRuns    prometheus.Counter
	ForecastsServed prometheus.Counter

	TravelPredictions prometheus.Counter
	TravelFallbacks   prometheus.Counter

	ActiveBuses prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter

	RequestDuration prometheus.Histogram
}

// NewCollector builds and registers all metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_rows_read_total",
			Help: "Total CSV rows parsed successfully.",
		}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_rows_skipped_total",
			Help: "Total CSV rows skipped, by reason.",
		}, []string{"reason"}),
		TrainingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forecast_training_runs_total",
			Help: "Total demand model training runs.",
		}),
		ForecastsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forecast_served_total",
			Help: "Total demand forecasts served.",
		}),
		TravelPredictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traveltime_predictions_total",
			Help: "Total travel time predictions served.",
		}),
		TravelFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traveltime_fallbacks_total",
			Help: "Total travel time predictions that served the fallback duration.",
		}),
		ActiveBuses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_active_buses",
			Help: "Number of buses currently on route in the simulation.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_published_total",
			Help: "Total NATS position messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of API request handling.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}

	reg.MustRegister(
		c.RowsRead, c.RowsSkipped,
		c.TrainingRuns, c.ForecastsServed,
		c.TravelPredictions, c.TravelFallbacks,
		c.ActiveBuses,
		c.NATSPublished, c.NATSPublishErrs,
		c.RequestDuration,
	)
	return c
}

// Handler returns the scrape endpoint handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
