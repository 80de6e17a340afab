package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the project lifecycle module.
type Metrics struct {
	ProjectsCreated  prometheus.Counter
	ProjectsFinished prometheus.Counter
	AutoFinished     prometheus.Counter
	RelinkDuration   prometheus.Histogram
	RelinkSize       prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
}

// New creates a Metrics instance with all project module metrics registered.
func New() *Metrics {
	return &Metrics{
		ProjectsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_projects_created_total",
			Help: "Total number of projects created",
		}),
		ProjectsFinished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_projects_finished_total",
			Help: "Total number of projects finished, cascades included",
		}),
		AutoFinished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_projects_auto_finished_total",
			Help: "Total number of follow-ups auto-finished on successor creation",
		}),
		RelinkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wastetrack_project_relink_duration_seconds",
			Help:    "Duration of full link recomputation per project",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RelinkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wastetrack_project_relink_links",
			Help:    "Number of links written per recomputation",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_project_cache_hits_total",
			Help: "Derived snapshot cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_project_cache_misses_total",
			Help: "Derived snapshot cache misses",
		}),
	}
}

// IncrementProjectsCreated records a successful project creation.
func (m *Metrics) IncrementProjectsCreated() {
	m.ProjectsCreated.Inc()
}

// IncrementProjectsFinished records a finish transition.
func (m *Metrics) IncrementProjectsFinished() {
	m.ProjectsFinished.Inc()
}

// IncrementAutoFinished records a follow-up auto-finish.
func (m *Metrics) IncrementAutoFinished() {
	m.AutoFinished.Inc()
}

// ObserveRelink records duration and size of a link recomputation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRelink(start time.Time, links int) {
	m.RelinkDuration.Observe(time.Since(start).Seconds())
	m.RelinkSize.Observe(float64(links))
}

// IncrementCacheHit records a snapshot cache hit.
func (m *Metrics) IncrementCacheHit() {
	m.CacheHits.Inc()
}

// IncrementCacheMiss records a snapshot cache miss.
func (m *Metrics) IncrementCacheMiss() {
	m.CacheMisses.Inc()
}
