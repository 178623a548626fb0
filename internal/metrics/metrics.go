package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spreadcache"

// Recorder holds the cache's collectors. A nil *Recorder records nothing.
type Recorder struct {
	requests         prometheus.Counter
	lookups          *prometheus.CounterVec
	upstreamCalls    *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	storeWrites      prometheus.Counter
	storeWriteErrors prometheus.Counter
	storeCorruptions prometheus.Counter
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "GetTimeSeries calls that passed validation.",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_lookups_total",
			Help:      "Per-field cache lookups by outcome.",
		}, []string{"result"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Upstream FetchRange calls by mode.",
		}, []string{"mode"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Upstream FetchRange calls that failed, by mode.",
		}, []string{"mode"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream FetchRange latency by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"mode"}),
		storeWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Series saves attempted.",
		}),
		storeWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_errors_total",
			Help:      "Series saves that failed.",
		}),
		storeCorruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_corruptions_total",
			Help:      "Stored series that could not be read back.",
		}),
	}

	reg.MustRegister(
		r.requests,
		r.lookups,
		r.upstreamCalls,
		r.upstreamFailures,
		r.upstreamDuration,
		r.storeWrites,
		r.storeWriteErrors,
		r.storeCorruptions,
	)
	return r
}

// Request counts one validated request.
func (r *Recorder) Request() {
	if r == nil {
		return
	}
	r.requests.Inc()
}

// Lookup counts one field lookup with the given outcome.
func (r *Recorder) Lookup(result string) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(result).Inc()
}

// UpstreamCall records one upstream call in mode ("full" or "gap").
func (r *Recorder) UpstreamCall(mode string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.upstreamCalls.WithLabelValues(mode).Inc()
	r.upstreamDuration.WithLabelValues(mode).Observe(d.Seconds())
	if err != nil {
		r.upstreamFailures.WithLabelValues(mode).Inc()
	}
}

// StoreWrite records one save attempt.
func (r *Recorder) StoreWrite(err error) {
	if r == nil {
		return
	}
	r.storeWrites.Inc()
	if err != nil {
		r.storeWriteErrors.Inc()
	}
}

// StoreCorruption records one unreadable stored series.
func (r *Recorder) StoreCorruption() {
	if r == nil {
		return
	}
	r.storeCorruptions.Inc()
}
