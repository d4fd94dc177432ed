package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of conversions.
type Metrics struct {
	Records       prometheus.Counter
	Skipped       prometheus.Counter
	Chunks        prometheus.Counter
	BytesWritten  prometheus.Counter
	Parts         *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	ChunkDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vcf2parquet_records_total",
		Help: "Total VCF records written",
	})

	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vcf2parquet_records_skipped_total",
		Help: "Total VCF records dropped because a value did not fit its column",
	})

	chunks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vcf2parquet_chunks_total",
		Help: "Total chunks written as row groups",
	})

	bytesWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vcf2parquet_bytes_written_total",
		Help: "Total parquet bytes written",
	})

	parts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vcf2parquet_parts_total",
		Help: "Total parquet files written per dataset",
	}, []string{"dataset"})

	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vcf2parquet_errors_total",
		Help: "Total failed conversions per stage",
	}, []string{"stage"})

	chunkDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vcf2parquet_chunk_duration_seconds",
		Help:    "Time to assemble and write one chunk",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	reg.MustRegister(records, skipped, chunks, bytesWritten, parts, errs, chunkDuration)

	return &Metrics{
		Records:       records,
		Skipped:       skipped,
		Chunks:        chunks,
		BytesWritten:  bytesWritten,
		Parts:         parts,
		Errors:        errs,
		ChunkDuration: chunkDuration,
	}
}
