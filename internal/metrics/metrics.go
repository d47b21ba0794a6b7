// Package metrics exposes relayer_metrics: the Prometheus counters and
// gauges tracking order throughput, timeout firings, adapter retries,
// and auction activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersByState counts orders currently sitting in each SwapState.
	OrdersByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Name:      "orders_by_state",
		Help:      "Number of orders currently in each lifecycle state.",
	}, []string{"state"})

	// OrdersCreatedTotal counts every order accepted at the HTTP
	// boundary.
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relayer",
		Name:      "orders_created_total",
		Help:      "Total orders accepted for coordination.",
	})

	// TimeoutsFiredTotal counts deadline-scheduler firings, labeled by
	// which leg of the swap the timeout guarded.
	TimeoutsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Name:      "timeouts_fired_total",
		Help:      "Total deadline timeouts that fired.",
	}, []string{"kind"})

	// ChainAdapterRetriesTotal counts transient-error retries issued by
	// either chain adapter.
	ChainAdapterRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Name:      "chain_adapter_retries_total",
		Help:      "Total retries issued after a transient chain adapter error.",
	}, []string{"chain"})

	// AuctionBidsTotal counts resolver bids received, labeled by
	// whether they cleared the current Dutch-auction rate.
	AuctionBidsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Name:      "auction_bids_total",
		Help:      "Total resolver bids received.",
	}, []string{"outcome"})

	// CoordinatorActiveOrders reports the current size of the bounded
	// worker pool's in-flight set.
	CoordinatorActiveOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "relayer",
		Name:      "coordinator_active_orders",
		Help:      "Number of orders currently being coordinated concurrently.",
	})
)
