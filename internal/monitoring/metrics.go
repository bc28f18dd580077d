package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ingestion pipeline.
type Metrics struct {
	RecordsIngested  *prometheus.CounterVec
	DuplicatesTotal  *prometheus.CounterVec
	PriceUpdates     *prometheus.CounterVec
	ExtractionFails  *prometheus.CounterVec
	CategoryMisses   *prometheus.CounterVec
	FlushesTotal     *prometheus.CounterVec
	FlushDuration    prometheus.Histogram
	BatchSpills      prometheus.Counter
	RecordsCommitted *prometheus.CounterVec
	UnitsCompleted   *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics on reg. Pass
// prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Raw records received from source feeds.",
		}, []string{"source"}),
		DuplicatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_duplicates_total",
			Help: "Records rejected by the deduplication filter.",
		}, []string{"source", "scope"}), // scope: in_run, committed
		PriceUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_price_updates_total",
			Help: "Committed duplicates resubmitted with a changed price.",
		}, []string{"source"}),
		ExtractionFails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_extraction_failures_total",
			Help: "Records flagged by quantity or brand extraction.",
		}, []string{"source", "field"}),
		CategoryMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_category_misses_total",
			Help: "Raw category strings with no canonical mapping.",
		}, []string{"source"}),
		FlushesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_flushes_total",
			Help: "Batch flush attempts by outcome.",
		}, []string{"outcome"}), // success, retry, spilled
		FlushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_flush_duration_seconds",
			Help:    "Duration of batch commit transactions.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BatchSpills: f.NewCounter(prometheus.CounterOpts{
			Name: "ingest_batch_spills_total",
			Help: "Batches written to the local overflow log after retries.",
		}),
		RecordsCommitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_committed_total",
			Help: "Records durably committed to storage.",
		}, []string{"source"}),
		UnitsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_units_completed_total",
			Help: "Work units (categories) completed.",
		}, []string{"source"}),
	}
}
