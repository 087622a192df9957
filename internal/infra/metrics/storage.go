package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(catalogCacheLookups, orderPoolConns) }

var (
	catalogCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Catalog list lookups served from Redis (hit) or the gateway (miss).",
		},
		[]string{"result"},
	)

	orderPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "order_archive_pool_connections",
			Help: "Connections of the order archive pool by state.",
		},
		[]string{"state"}, // total, idle, acquired
	)
)

func IncCatalogCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	catalogCacheLookups.WithLabelValues(result).Inc()
}

func SetOrderPoolStats(total, idle, acquired int32) {
	orderPoolConns.WithLabelValues("total").Set(float64(total))
	orderPoolConns.WithLabelValues("idle").Set(float64(idle))
	orderPoolConns.WithLabelValues("acquired").Set(float64(acquired))
}
