package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	gridComputed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vizit",
			Name:      "grid_computed_total",
			Help:      "Count of candidate slot grids computed.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vizit",
			Name:      "slot_conflicts_total",
			Help:      "Count of candidate slots classified as booked.",
		},
	)

	quotaRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vizit",
			Name:      "quota_rejections_total",
			Help:      "Count of slot toggles rejected by session quota.",
		},
	)

	fetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizit",
			Name:      "fetch_failures_total",
			Help:      "Count of failed backend fetches by kind.",
		},
		[]string{"kind"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizit",
			Name:      "submissions_total",
			Help:      "Count of reservation submissions by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizit",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(gridComputed, slotConflicts, quotaRejections, fetchFailures, submissions, httpRequests)
	})
}

func IncGridComputed() {
	gridComputed.Inc()
}

func AddSlotConflicts(n int) {
	slotConflicts.Add(float64(n))
}

func IncQuotaRejection() {
	quotaRejections.Inc()
}

func IncFetchFailure(kind string) {
	fetchFailures.WithLabelValues(kind).Inc()
}

func IncSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
