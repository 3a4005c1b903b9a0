package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RowsProcessed  *prometheus.CounterVec
	RowsWritten    prometheus.Counter
	BatchesFlushed prometheus.Counter
	CurrentRow     prometheus.Gauge
	Timeouts       prometheus.Counter
	APIErrors      *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RowsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "coordinfo_rows_processed_total",
			Help: "Total number of input rows run through enrichment.",
		}, []string{"result"}),
		RowsWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "coordinfo_rows_written_total",
			Help: "Total number of enriched rows appended to the output file.",
		}),
		BatchesFlushed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "coordinfo_batches_flushed_total",
			Help: "Total number of batches appended to the output file.",
		}),
		CurrentRow: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "coordinfo_current_row",
			Help: "Index of the input row currently being processed.",
		}),
		Timeouts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoding_provider_timeouts_total",
			Help: "Total number of timed out provider requests that were retried.",
		}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}, []string{"kind"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}
