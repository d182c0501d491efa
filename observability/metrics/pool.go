package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type PoolMetrics struct {
	deposits        *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	rewardsRounds   *prometheus.CounterVec
	drawsCompleted  *prometheus.CounterVec
	prizePool       *prometheus.GaugeVec
	totalDeposited  *prometheus.GaugeVec
	roundingDust    *prometheus.GaugeVec
	emergencyState  *prometheus.GaugeVec
	withdrawalFails *prometheus.CounterVec
}

var (
	poolOnce     sync.Once
	poolRegistry *PoolMetrics
)

func Pool() *PoolMetrics {
	poolOnce.Do(func() {
		poolRegistry = &PoolMetrics{
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_deposits_total",
				Help: "Count of accepted deposits per pool.",
			}, []string{"pool"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_withdrawals_total",
				Help: "Count of settled withdrawals per pool.",
			}, []string{"pool"}),
			rewardsRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_rewards_rounds_total",
				Help: "Count of reward-processing rounds per pool.",
			}, []string{"pool"}),
			drawsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_draws_completed_total",
				Help: "Count of settled draws per pool and outcome.",
			}, []string{"pool", "outcome"}),
			prizePool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pool_prize_balance",
				Help: "Current prize pool balance in base units.",
			}, []string{"pool"}),
			totalDeposited: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pool_total_deposited",
				Help: "Sum of account deposits in base units.",
			}, []string{"pool"}),
			roundingDust: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pool_rounding_dust",
				Help: "Cumulative rounding remainder swept to the treasury.",
			}, []string{"pool"}),
			emergencyState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pool_emergency_state",
				Help: "Current emergency state as an ordinal (0 normal).",
			}, []string{"pool"}),
			withdrawalFails: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_withdrawal_failures_total",
				Help: "Count of withdrawal failures feeding the circuit breaker.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			poolRegistry.deposits,
			poolRegistry.withdrawals,
			poolRegistry.rewardsRounds,
			poolRegistry.drawsCompleted,
			poolRegistry.prizePool,
			poolRegistry.totalDeposited,
			poolRegistry.roundingDust,
			poolRegistry.emergencyState,
			poolRegistry.withdrawalFails,
		)
	})
	return poolRegistry
}

func poolLabel(id uint64) string { return fmt.Sprintf("%d", id) }

func (m *PoolMetrics) ObserveDeposit(pool uint64) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(poolLabel(pool)).Inc()
}

func (m *PoolMetrics) ObserveWithdrawal(pool uint64) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(poolLabel(pool)).Inc()
}

func (m *PoolMetrics) ObserveWithdrawalFailure(pool uint64) {
	if m == nil {
		return
	}
	m.withdrawalFails.WithLabelValues(poolLabel(pool)).Inc()
}

func (m *PoolMetrics) ObserveRewardsRound(pool uint64) {
	if m == nil {
		return
	}
	m.rewardsRounds.WithLabelValues(poolLabel(pool)).Inc()
}

func (m *PoolMetrics) ObserveDrawCompleted(pool uint64, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.drawsCompleted.WithLabelValues(poolLabel(pool), outcome).Inc()
}

func (m *PoolMetrics) SetPrizeBalance(pool uint64, amount float64) {
	if m == nil {
		return
	}
	m.prizePool.WithLabelValues(poolLabel(pool)).Set(amount)
}

func (m *PoolMetrics) SetTotalDeposited(pool uint64, amount float64) {
	if m == nil {
		return
	}
	m.totalDeposited.WithLabelValues(poolLabel(pool)).Set(amount)
}

func (m *PoolMetrics) AddRoundingDust(pool uint64, amount float64) {
	if m == nil {
		return
	}
	m.roundingDust.WithLabelValues(poolLabel(pool)).Add(amount)
}

func (m *PoolMetrics) SetEmergencyState(pool uint64, state float64) {
	if m == nil {
		return
	}
	m.emergencyState.WithLabelValues(poolLabel(pool)).Set(state)
}
