package layer

import "github.com/prometheus/client_golang/prometheus"

var (
	registry = prometheus.NewRegistry()

	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tectonic_layer_cache_hits_total",
			Help: "Total number of layer outputs served from the proxy cache.",
		},
		[]string{"kind"},
	)

	cacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tectonic_layer_cache_misses_total",
			Help: "Total number of layer outputs recomputed.",
		},
		[]string{"kind"},
	)
)

func init() {
	registry.MustRegister(cacheHitsTotal)
	registry.MustRegister(cacheMissesTotal)
}

// MetricsRegistry returns the registry holding the layer cache metrics.
func MetricsRegistry() *prometheus.Registry { return registry }

func cacheHit(k Kind)  { cacheHitsTotal.WithLabelValues(k.String()).Inc() }
func cacheMiss(k Kind) { cacheMissesTotal.WithLabelValues(k.String()).Inc() }
