// Package metrics holds the prometheus collectors of the pipeline. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "songplay_etl"

type Metrics struct {
	filesScanned   *prometheus.CounterVec
	rowsScanned    *prometheus.CounterVec
	corruptRecords *prometheus.CounterVec
	bytesScanned   *prometheus.CounterVec
	scanDuration   *prometheus.HistogramVec

	rowsWritten       *prometheus.CounterVec
	partitionsWritten *prometheus.CounterVec
	objectsDeleted    *prometheus.CounterVec
	writeDuration     *prometheus.HistogramVec

	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastSuccess  prometheus.Gauge
	runsInFlight prometheus.Gauge
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		filesScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_scanned_total",
			Help:      "Source objects read, by source pattern.",
		}, []string{"source"}),
		rowsScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_scanned_total",
			Help:      "Records decoded from source objects.",
		}, []string{"source"}),
		corruptRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_records_total",
			Help:      "Source lines that were not a JSON object.",
		}, []string{"source"}),
		bytesScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_scanned_total",
			Help:      "Bytes read from source objects.",
		}, []string{"source"}),
		scanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning one source pattern.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"source"}),
		rowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to output tables.",
		}, []string{"table"}),
		partitionsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partitions_written_total",
			Help:      "Partition files written to output tables.",
		}, []string{"table"}),
		objectsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_deleted_total",
			Help:      "Objects removed while overwriting output tables.",
		}, []string{"table"}),
		writeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_duration_seconds",
			Help:      "Time spent writing one output table.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"table"}),
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		runsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently executing.",
		}),
	}
}

func (m *Metrics) ObserveScan(source string, files, rows, corrupt int, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.filesScanned.WithLabelValues(source).Add(float64(files))
	m.rowsScanned.WithLabelValues(source).Add(float64(rows))
	m.corruptRecords.WithLabelValues(source).Add(float64(corrupt))
	m.bytesScanned.WithLabelValues(source).Add(float64(bytes))
	m.scanDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveWrite(table string, rows, partitions, deleted int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rowsWritten.WithLabelValues(table).Add(float64(rows))
	m.partitionsWritten.WithLabelValues(table).Add(float64(partitions))
	m.objectsDeleted.WithLabelValues(table).Add(float64(deleted))
	m.writeDuration.WithLabelValues(table).Observe(elapsed.Seconds())
}

// RunStarted returns the callback that records the run's outcome.
func (m *Metrics) RunStarted() func(err error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	m.runsInFlight.Inc()
	return func(err error) {
		m.runsInFlight.Dec()
		m.runDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.runsTotal.WithLabelValues("failed").Inc()
			return
		}
		m.runsTotal.WithLabelValues("completed").Inc()
		m.lastSuccess.SetToCurrentTime()
	}
}
