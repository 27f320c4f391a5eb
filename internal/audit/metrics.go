package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	entriesTotal  *prometheus.CounterVec
	writeFailures prometheus.Counter
	purgedRows    prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		entriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_audit_entries_total",
			Help: "Audit entries recorded, by severity",
		}, []string{"severity"}),
		writeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_audit_write_failures_total",
			Help: "Audit entries lost to store failures or full buffers",
		}),
		purgedRows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_audit_purged_rows_total",
			Help: "Audit rows removed by retention purges",
		}),
	}
}

func (m *Metrics) EntryRecorded(severity string) {
	m.entriesTotal.WithLabelValues(severity).Inc()
}

func (m *Metrics) WriteFailed() {
	m.writeFailures.Inc()
}

func (m *Metrics) RowsPurged(n int64) {
	m.purgedRows.Add(float64(n))
}
