package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration ledger.
type Metrics struct {
	RegistrationsRecorded prometheus.Counter
	LinksInserted         prometheus.Counter
	RecordDuration        prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		RegistrationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_registrations_recorded_total",
			Help: "Total number of registrations appended to the ledger",
		}),
		LinksInserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_registration_links_inserted_total",
			Help: "Total number of incremental project links inserted",
		}),
		RecordDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wastetrack_registration_record_duration_seconds",
			Help:    "Duration of registration recording including link fan-out",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRecorded records a successful ledger append.
func (m *Metrics) IncrementRecorded() {
	m.RegistrationsRecorded.Inc()
}

// AddLinksInserted records incremental links inserted during a fan-out.
func (m *Metrics) AddLinksInserted(n int) {
	m.LinksInserted.Add(float64(n))
}

// ObserveRecord records the duration of a Record operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRecord(start time.Time) {
	m.RecordDuration.Observe(time.Since(start).Seconds())
}
