package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	buildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gocons_builds_total",
		Help: "Number of builder invocations, by result.",
	}, []string{"result"})

	buildsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gocons_builds_in_flight",
		Help: "Number of builder invocations currently running.",
	})

	buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gocons_build_duration_seconds",
		Help:    "Wall-clock duration of builder invocations.",
		Buckets: prometheus.DefBuckets,
	})
)

// Registry holds the scheduler's Prometheus collectors. Reference drivers
// expose it over HTTP (see cmd/gocons, which serves it on /metrics); the
// core never starts a listener itself.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(buildsTotal, buildsInFlight, buildDuration)
}
