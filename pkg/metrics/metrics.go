// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// TransactionsInitiated counts bridge transactions accepted by initiate
	TransactionsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_transactions_initiated_total",
		Help: "Bridge transactions initiated, by destination chain",
	}, []string{"dest_chain"})

	// TransactionsExecuted counts successful executions
	TransactionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_transactions_executed_total",
		Help: "Bridge transactions executed, by destination chain",
	}, []string{"dest_chain"})

	// TransactionsExpired counts transactions observed past their deadline
	TransactionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_transactions_expired_total",
		Help: "Bridge transactions observed past their deadline without execution",
	})

	// ChallengesOpened counts fraud challenges opened
	ChallengesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_challenges_opened_total",
		Help: "Fraud challenges opened against pending transactions",
	})

	// ChallengesResolved counts resolutions by verdict
	ChallengesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_challenges_resolved_total",
		Help: "Fraud challenge resolutions, by verdict",
	}, []string{"verdict"})

	// StakeSlashed accumulates slashed stake
	StakeSlashed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_stake_slashed_total",
		Help: "Total validator stake slashed",
	})

	// InstantBridges counts instant settlements by asset
	InstantBridges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_instant_settlements_total",
		Help: "Instant liquidity-pool settlements, by asset",
	}, []string{"asset"})

	// PoolUtilization reports current pool utilization by asset
	PoolUtilization = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bridge_pool_utilization_ratio",
		Help: "Liquidity pool utilization ratio, by asset",
	}, []string{"asset"})

	// TotalBridgedVolume reports the cumulative initiated volume, net of
	// cancellations
	TotalBridgedVolume = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_total_volume",
		Help: "Cumulative bridged volume accepted by initiate",
	})

	// Paused reports whether the bridge is paused (1) or live (0)
	Paused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_paused",
		Help: "Whether the bridge is in emergency pause",
	})
)

// Handler returns the /metrics HTTP handler
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
