package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "portledger_"

	resultSuccess = "success"
	resultError   = "error"
)

// Result labels for the Observe helpers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

var (
	registerOnce sync.Once

	pdaCreateTotal  *prometheus.CounterVec
	pdaApproveTotal *prometheus.CounterVec
	autoPriceTotal  *prometheus.CounterVec
	fdaConvertTotal *prometheus.CounterVec
	fdaConvertLat   *prometheus.HistogramVec
	fdaRebuildTotal *prometheus.CounterVec
	paymentTotal    *prometheus.CounterVec
	exportTotal     *prometheus.CounterVec
	exportLatency   *prometheus.HistogramVec
	conflictTotal   *prometheus.CounterVec
	ptaxLookupTotal *prometheus.CounterVec
	ptaxLookupLat   *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		pdaCreateTotal = newResultCounter("pda_create_total", "Total PDA create operations by result")
		pdaApproveTotal = newResultCounter("pda_approve_total", "Total PDA approve operations by result")
		autoPriceTotal = newResultCounter("pda_autoprice_total", "Total auto pricing runs by result")
		fdaConvertTotal = newResultCounter("fda_convert_total", "Total PDA to FDA conversions by result")
		fdaConvertLat = newResultHistogram("fda_convert_latency_seconds", "PDA to FDA conversion latency in seconds")
		fdaRebuildTotal = newResultCounter("fda_rebuild_total", "Total ledger rebuilds by result")
		paymentTotal = newResultCounter("ledger_payment_total", "Total ledger payments recorded by result")
		conflictTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stale_update_total",
				Help: "Optimistic concurrency conflicts by resource",
			},
			[]string{"resource"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total document exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Document export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		ptaxLookupTotal = newResultCounter("ptax_lookup_total", "Total PTAX feed lookups by result")
		ptaxLookupLat = newResultHistogram("ptax_lookup_latency_seconds", "PTAX feed lookup latency in seconds")

		prometheus.MustRegister(
			pdaCreateTotal,
			pdaApproveTotal,
			autoPriceTotal,
			fdaConvertTotal,
			fdaConvertLat,
			fdaRebuildTotal,
			paymentTotal,
			conflictTotal,
			exportTotal,
			exportLatency,
			ptaxLookupTotal,
			ptaxLookupLat,
		)
		registerDBMetrics(db, logger)
	})
}

func newResultCounter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: metricPrefix + name, Help: help},
		[]string{"result"},
	)
}

func newResultHistogram(name, help string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: metricPrefix + name, Help: help, Buckets: prometheus.DefBuckets},
		[]string{"result"},
	)
}

// ObservePDACreate records a PDA create.
func ObservePDACreate(result string) {
	if pdaCreateTotal != nil {
		pdaCreateTotal.WithLabelValues(result).Inc()
	}
}

// ObservePDAApprove records a PDA approval.
func ObservePDAApprove(result string) {
	if pdaApproveTotal != nil {
		pdaApproveTotal.WithLabelValues(result).Inc()
	}
}

// ObserveAutoPrice records an auto pricing run.
func ObserveAutoPrice(result string) {
	if autoPriceTotal != nil {
		autoPriceTotal.WithLabelValues(result).Inc()
	}
}

// ObserveFDAConvert records a conversion with latency.
func ObserveFDAConvert(result string, duration time.Duration) {
	if fdaConvertTotal != nil {
		fdaConvertTotal.WithLabelValues(result).Inc()
	}
	if fdaConvertLat != nil {
		fdaConvertLat.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveFDARebuild records a ledger rebuild.
func ObserveFDARebuild(result string) {
	if fdaRebuildTotal != nil {
		fdaRebuildTotal.WithLabelValues(result).Inc()
	}
}

// ObservePayment records a ledger payment operation.
func ObservePayment(result string) {
	if paymentTotal != nil {
		paymentTotal.WithLabelValues(result).Inc()
	}
}

// ObserveStaleUpdate records an optimistic concurrency conflict.
func ObserveStaleUpdate(resource string) {
	if conflictTotal != nil {
		conflictTotal.WithLabelValues(resource).Inc()
	}
}

// ObserveExport records a document export with latency.
func ObserveExport(format, result string, duration time.Duration) {
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObservePTAXLookup records an external rate feed lookup.
func ObservePTAXLookup(result string, duration time.Duration) {
	if ptaxLookupTotal != nil {
		ptaxLookupTotal.WithLabelValues(result).Inc()
	}
	if ptaxLookupLat != nil {
		ptaxLookupLat.WithLabelValues(result).Observe(duration.Seconds())
	}
}
