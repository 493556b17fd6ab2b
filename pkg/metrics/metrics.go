package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ghsync"

// Label values.
const (
	LabelResult = "result"
	LabelStatus = "status"

	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Metrics tracks requests, writes and cache effectiveness. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requestsTotal      prometheus.Counter
	writesTotal        prometheus.Counter
	cacheLookupsTotal  *prometheus.CounterVec
	jobsTotal          *prometheus.CounterVec
	rateLimitRemaining prometheus.Gauge
}

// New creates the collectors and registers them on registry. With a nil
// registry the collectors exist but are not exported.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests issued against the upstream API",
		}),
		writesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Payloads written to disk",
		}),
		cacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache checks by result",
		}, []string{LabelResult}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished job runs by status",
		}, []string{LabelStatus}),
		rateLimitRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ratelimit_remaining",
			Help:      "Remaining anonymous API requests reported upstream",
		}),
	}

	if registry != nil {
		registry.MustRegister(
			m.requestsTotal,
			m.writesTotal,
			m.cacheLookupsTotal,
			m.jobsTotal,
			m.rateLimitRemaining,
		)
	}
	return m
}

func (m *Metrics) AddRequests(n int) {
	if m == nil {
		return
	}
	m.requestsTotal.Add(float64(n))
}

func (m *Metrics) AddWrites(n int) {
	if m == nil {
		return
	}
	m.writesTotal.Add(float64(n))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) SetRateLimitRemaining(n int) {
	if m == nil {
		return
	}
	m.rateLimitRemaining.Set(float64(n))
}
