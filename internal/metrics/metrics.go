// Package metrics exposes the Prometheus instrumentation for the
// incremental compilation service: cache hit/miss counters, compile
// duration histograms, and affected-set size, all wired through
// promauto so registration can never be forgotten or duplicated.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every counter/histogram/gauge the service emits. Construct
// once per process with New and share the value across the Service Facade.
type Metrics struct {
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheEvictions  prometheus.Counter
	CompileDuration *prometheus.HistogramVec
	AffectedSetSize prometheus.Histogram
	Compiles        *prometheus.CounterVec
}

// New registers and returns the service's metrics against reg. Passing
// prometheus.NewRegistry() isolates a set of metrics for tests; passing
// prometheus.DefaultRegisterer wires into the process-wide /metrics
// endpoint.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compilecache",
			Name:      "cache_hits_total",
			Help:      "Number of compile requests satisfied entirely from cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compilecache",
			Name:      "cache_misses_total",
			Help:      "Number of compile requests that required a compiler driver invocation.",
		}),
		CacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compilecache",
			Name:      "cache_evictions_total",
			Help:      "Number of explicit clear-cache requests for a single module; TTL expiry and LRU capacity evictions are not counted.",
		}),
		CompileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "compilecache",
			Name:      "compile_duration_seconds",
			Help:      "Wall-clock time spent inside the compiler driver, by target phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		AffectedSetSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "compilecache",
			Name:      "affected_set_size",
			Help:      "Size of the transitive affected-module set returned by each affected-set query.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		Compiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compilecache",
			Name:      "compiles_total",
			Help:      "Number of compiler driver invocations, by result status.",
		}, []string{"status"}),
	}
}
