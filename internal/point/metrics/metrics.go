package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the point hierarchy module.
type Metrics struct {
	PointsCreated     prometheus.Counter
	PointsRemoved     prometheus.Counter
	ReparentDuration  prometheus.Histogram
	CascadeDuration   prometheus.Histogram
	ReparentedSubtree prometheus.Histogram
}

// New creates a Metrics instance with all point module metrics registered.
func New() *Metrics {
	return &Metrics{
		PointsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_points_created_total",
			Help: "Total number of registration points created",
		}),
		PointsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_points_removed_total",
			Help: "Total number of registration points soft-deleted",
		}),
		ReparentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wastetrack_point_reparent_duration_seconds",
			Help:    "Duration of reparent operations including subtree rebase",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CascadeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wastetrack_point_cascade_duration_seconds",
			Help:    "Duration of activation and deletion cascades",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ReparentedSubtree: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wastetrack_point_reparent_subtree_size",
			Help:    "Number of descendants rebased per reparent",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
	}
}

// IncrementPointsCreated records a successful point creation.
func (m *Metrics) IncrementPointsCreated() {
	m.PointsCreated.Inc()
}

// IncrementPointsRemoved records a successful point removal.
func (m *Metrics) IncrementPointsRemoved() {
	m.PointsRemoved.Inc()
}

// ObserveReparent records the duration and subtree size of a reparent.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveReparent(start time.Time, subtreeSize int) {
	m.ReparentDuration.Observe(time.Since(start).Seconds())
	m.ReparentedSubtree.Observe(float64(subtreeSize))
}

// ObserveCascade records the duration of an activation or deletion cascade.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCascade(start time.Time) {
	m.CascadeDuration.Observe(time.Since(start).Seconds())
}
