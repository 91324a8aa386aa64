package wiki

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded by Metrics.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics holds the Prometheus collectors of the client and the store.
// A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	retries     *prometheus.CounterVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peoplenet",
			Subsystem: "wiki",
			Name:      "requests_total",
			Help:      "Content API requests by query kind and outcome.",
		}, []string{"kind", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peoplenet",
			Subsystem: "wiki",
			Name:      "retries_total",
			Help:      "Content API requests retried after a transient failure.",
		}, []string{"kind"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peoplenet",
			Subsystem: "store",
			Name:      "cache_hits_total",
			Help:      "Titles served from the page cache.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peoplenet",
			Subsystem: "store",
			Name:      "cache_misses_total",
			Help:      "Titles that needed a remote fetch.",
		}),
	}
}

// CacheHits returns the cache hit counter.
func (m *Metrics) CacheHits() prometheus.Counter {
	return m.cacheHits
}

// CacheMisses returns the cache miss counter.
func (m *Metrics) CacheMisses() prometheus.Counter {
	return m.cacheMisses
}

func (m *Metrics) observeRequest(kind Kind, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind.String(), outcome).Inc()
}

func (m *Metrics) observeRetry(kind Kind) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeCache(hits, misses int) {
	if m == nil {
		return
	}
	m.cacheHits.Add(float64(hits))
	m.cacheMisses.Add(float64(misses))
}
