package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// unrecorded 表示转账已确认但领取记录写入失败，需要人工补录
const (
	outcomeSuccess       = "success"
	outcomeRateLimited   = "rate_limited"
	outcomeInProgress    = "in_progress"
	outcomeIPClaimed     = "ip_claimed"
	outcomeWalletClaimed = "wallet_claimed"
	outcomeNoFunds       = "insufficient_funds"
	outcomeUnavailable   = "rpc_unavailable"
	outcomeFailed        = "failed"
	outcomeUnrecorded    = "unrecorded"
)

var (
	claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faucet_claims_total",
			Help: "Claim requests by outcome",
		},
		[]string{"outcome"},
	)

	transferDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faucet_transfer_duration_seconds",
			Help:    "Time from transaction submission to receipt",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)
)

func init() {
	prometheus.MustRegister(claimsTotal, transferDuration)
}
