//go:build !integration

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorsRegisterAndExpose(t *testing.T) {
	reg := prometheus.NewRegistry()
	mustRegisterWith(reg)

	IncEvent("Telegram", "callback")
	IncTransition("menu", "product")
	IncCatalogCache(true)
	IncOrderPaid("pickup", "RUB", 79950)
	ObserveGatewayCall("moltin", "get_cart", "ok", 20*time.Millisecond)
	SetOrderPoolStats(4, 3, 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{
		"conversation_events_total",
		"conversation_transitions_total",
		"catalog_cache_lookups_total",
		"orders_paid_total",
		"orders_revenue_minor_total",
		"gateway_calls_total",
		"order_archive_pool_connections",
	} {
		if !seen[name] {
			t.Errorf("metric %s not exposed", name)
		}
	}
}

func TestNorm(t *testing.T) {
	cases := map[string]string{" Telegram ": "telegram", "": "unknown", "OK": "ok"}
	for in, want := range cases {
		if got := norm(in); got != want {
			t.Errorf("norm(%q) = %q, want %q", in, got, want)
		}
	}
}
