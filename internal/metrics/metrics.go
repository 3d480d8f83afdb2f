package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ModeAll labels coarse catalog sweeps.
	ModeAll = "all"
	// ModeAuthoritative labels cascade runs.
	ModeAuthoritative = "authoritative"

	// StrategyNone labels cascade runs where no strategy produced records.
	StrategyNone = "none"
)

var (
	extractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specscan",
			Name:      "extractions_total",
			Help:      "Total number of log extractions, partitioned by mode and winning strategy.",
		},
		[]string{"mode", "strategy"},
	)

	failureRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specscan",
			Name:      "failure_records_total",
			Help:      "Total number of failure records emitted, partitioned by framework label.",
		},
		[]string{"type"},
	)

	extractionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "specscan",
			Name:      "extraction_seconds",
			Help:      "Extraction latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"mode"},
	)

	buildkiteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specscan",
			Name:      "buildkite_requests_total",
			Help:      "Outbound Buildkite API requests, partitioned by operation and status code.",
		},
		[]string{"operation", "code"},
	)

	logCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specscan",
			Name:      "job_log_cache_total",
			Help:      "Job log cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)

	logFetchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "specscan",
			Name:      "job_log_fetch_errors_total",
			Help:      "Job log fetches that failed while building a failed-specs report.",
		},
	)
)

// Register attaches specscan collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		extractionsTotal,
		failureRecordsTotal,
		extractionDurationSeconds,
		buildkiteRequestsTotal,
		logCacheTotal,
		logFetchErrorsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveExtraction records one extraction run. types holds the framework
// label of every emitted record.
func ObserveExtraction(mode, strategy string, types []string, duration time.Duration) {
	if strategy == "" {
		strategy = StrategyNone
	}
	extractionsTotal.WithLabelValues(mode, strategy).Inc()
	for _, t := range types {
		failureRecordsTotal.WithLabelValues(t).Inc()
	}
	if duration < 0 {
		duration = 0
	}
	extractionDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveBuildkiteRequest records an outbound API call. A zero code means the
// request failed before a response arrived.
func ObserveBuildkiteRequest(operation string, code int) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	buildkiteRequestsTotal.WithLabelValues(operation, label).Inc()
}

// ObserveLogCache records a job log cache hit or miss.
func ObserveLogCache(hit bool) {
	if hit {
		logCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	logCacheTotal.WithLabelValues("miss").Inc()
}

// IncLogFetchErrors counts a job whose log could not be fetched.
func IncLogFetchErrors() {
	logFetchErrorsTotal.Inc()
}
