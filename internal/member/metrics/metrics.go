package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ImportsTotal       *prometheus.CounterVec
	ImportBatchSize    prometheus.Histogram
	ConfirmationsTotal prometheus.Counter
	EditsTotal         prometheus.Counter
	ExportsTotal       prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ImportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rpca70_imports_total",
			Help: "Total number of CSV import attempts by outcome",
		}, []string{"outcome"}),
		ImportBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rpca70_import_batch_size",
			Help:    "Accepted rows per successful import",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500},
		}),
		ConfirmationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rpca70_confirmations_total",
			Help: "Total number of record confirmations",
		}),
		EditsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rpca70_edits_total",
			Help: "Total number of record edits applied",
		}),
		ExportsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rpca70_exports_total",
			Help: "Total number of CSV exports",
		}),
	}
}

func (m *Metrics) ObserveImport(outcome string, accepted int) {
	if m == nil {
		return
	}
	m.ImportsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		m.ImportBatchSize.Observe(float64(accepted))
	}
}

func (m *Metrics) IncrementConfirmations() {
	if m == nil {
		return
	}
	m.ConfirmationsTotal.Inc()
}

func (m *Metrics) IncrementEdits() {
	if m == nil {
		return
	}
	m.EditsTotal.Inc()
}

func (m *Metrics) IncrementExports() {
	if m == nil {
		return
	}
	m.ExportsTotal.Inc()
}
