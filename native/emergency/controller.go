// Package emergency implements the health-based circuit breaker that gates
// pool mutations. State transitions are either administrative or automatic:
// sustained withdrawal failures or a deteriorating yield-source balance trip
// the breaker, and recovery is time- or health-driven when enabled.
package emergency

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// HealthBpsDenominator scales health scores and thresholds.
const HealthBpsDenominator = 10000

var (
	ErrPaused             = errors.New("emergency: pool is paused")
	ErrDepositsBlocked    = errors.New("emergency: deposits blocked in emergency mode")
	ErrDrawsBlocked       = errors.New("emergency: draws blocked in current state")
	ErrDepositCapExceeded = errors.New("emergency: deposit exceeds partial-mode cap")
	ErrNotEmergency       = errors.New("emergency: controller not in emergency mode")
	ErrAlreadyTriggered   = errors.New("emergency: emergency mode already active")
)

// State enumerates the controller's operating modes.
type State uint8

const (
	StateNormal State = iota
	StatePaused
	StateEmergency
	StatePartial
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StatePaused:
		return "paused"
	case StateEmergency:
		return "emergency"
	case StatePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Config carries the circuit-breaker policy parameters.
type Config struct {
	MaxEmergencyDuration    time.Duration
	AutoRecoveryEnabled     bool
	MinYieldSourceHealthBps uint64
	RecoveryHealthBps       uint64
	MaxConsecutiveFailures  uint32
	PartialModeDepositCap   *big.Int
	MinBalanceThresholdBps  uint64
	BalanceWeightBps        uint64
	FailureWeightBps        uint64
}

// DefaultConfig returns the policy used when a pool does not override it:
// trigger below 50% health, recover above 80%, three strikes on withdrawals.
func DefaultConfig() Config {
	return Config{
		MaxEmergencyDuration:    72 * time.Hour,
		AutoRecoveryEnabled:     true,
		MinYieldSourceHealthBps: 5000,
		RecoveryHealthBps:       8000,
		MaxConsecutiveFailures:  3,
		PartialModeDepositCap:   big.NewInt(0),
		MinBalanceThresholdBps:  9500,
		BalanceWeightBps:        7000,
		FailureWeightBps:        3000,
	}
}

// Validate ensures the thresholds are coherent.
func (c Config) Validate() error {
	if c.MinYieldSourceHealthBps > HealthBpsDenominator {
		return fmt.Errorf("emergency: min health must be <= %d bps", HealthBpsDenominator)
	}
	if c.RecoveryHealthBps > HealthBpsDenominator {
		return fmt.Errorf("emergency: recovery health must be <= %d bps", HealthBpsDenominator)
	}
	if c.RecoveryHealthBps < c.MinYieldSourceHealthBps {
		return errors.New("emergency: recovery threshold below trigger threshold")
	}
	if c.MaxConsecutiveFailures == 0 {
		return errors.New("emergency: max consecutive failures must be positive")
	}
	if c.BalanceWeightBps+c.FailureWeightBps != HealthBpsDenominator {
		return fmt.Errorf("emergency: health weights must sum to %d bps", HealthBpsDenominator)
	}
	if c.MinBalanceThresholdBps == 0 || c.MinBalanceThresholdBps > HealthBpsDenominator {
		return errors.New("emergency: balance threshold out of range")
	}
	return nil
}

// HealthInput carries the observations one evaluation needs.
type HealthInput struct {
	ConnectorAvailable *big.Int
	TotalStaked        *big.Int
	ConnectorFailed    bool
}

// Info is a read-only snapshot of the controller for status queries.
type Info struct {
	State               State
	Reason              string
	EnteredAt           time.Time
	ConsecutiveFailures uint32
	LastHealthBps       uint64
}

// Controller tracks emergency state for one pool.
type Controller struct {
	cfg       Config
	state     State
	reason    string
	enteredAt time.Time
	failures  uint32
	lastBps   uint64
	clock     func() time.Time
}

// NewController builds a controller in the Normal state.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:     cfg,
		state:   StateNormal,
		lastBps: HealthBpsDenominator,
		clock:   time.Now,
	}, nil
}

// SetClock overrides the time source for deterministic testing.
func (c *Controller) SetClock(clock func() time.Time) {
	if clock != nil {
		c.clock = clock
	}
}

// State returns the current operating mode.
func (c *Controller) State() State { return c.state }

// Snapshot returns a copy of the controller's observable state.
func (c *Controller) Snapshot() Info {
	return Info{
		State:               c.state,
		Reason:              c.reason,
		EnteredAt:           c.enteredAt,
		ConsecutiveFailures: c.failures,
		LastHealthBps:       c.lastBps,
	}
}

// Restore rehydrates the controller from persisted state.
func (c *Controller) Restore(info Info) {
	c.state = info.State
	c.reason = info.Reason
	c.enteredAt = info.EnteredAt
	c.failures = info.ConsecutiveFailures
	c.lastBps = info.LastHealthBps
}

// HealthScore combines the balance check against the staked total with an
// inverse of the consecutive-failure count, both weighted per the config.
// The result is in [0, 10000].
func (c *Controller) HealthScore(in HealthInput) uint64 {
	balance := c.balanceScore(in)
	failure := c.failureScore()
	score := (balance*c.cfg.BalanceWeightBps + failure*c.cfg.FailureWeightBps) / HealthBpsDenominator
	c.lastBps = score
	return score
}

func (c *Controller) balanceScore(in HealthInput) uint64 {
	if in.ConnectorFailed {
		return 0
	}
	if in.TotalStaked == nil || in.TotalStaked.Sign() == 0 {
		return HealthBpsDenominator
	}
	available := in.ConnectorAvailable
	if available == nil {
		available = big.NewInt(0)
	}
	// required = totalStaked * minBalanceThreshold
	required := new(big.Int).Mul(in.TotalStaked, new(big.Int).SetUint64(c.cfg.MinBalanceThresholdBps))
	required.Quo(required, big.NewInt(HealthBpsDenominator))
	if required.Sign() == 0 || available.Cmp(required) >= 0 {
		return HealthBpsDenominator
	}
	ratio := new(big.Int).Mul(available, big.NewInt(HealthBpsDenominator))
	ratio.Quo(ratio, required)
	return ratio.Uint64()
}

func (c *Controller) failureScore() uint64 {
	max := uint64(c.cfg.MaxConsecutiveFailures)
	failures := uint64(c.failures)
	if failures >= max {
		return 0
	}
	return (max - failures) * HealthBpsDenominator / max
}

// RecordWithdrawalFailure increments the consecutive-failure counter and
// returns the new count.
func (c *Controller) RecordWithdrawalFailure() uint32 {
	c.failures++
	return c.failures
}

// RecordWithdrawalSuccess clears the consecutive-failure counter.
func (c *Controller) RecordWithdrawalSuccess() {
	c.failures = 0
}

// Evaluate applies the auto-trigger and auto-recovery rules for the supplied
// observations. It returns the state after evaluation and whether it changed.
func (c *Controller) Evaluate(in HealthInput) (State, bool) {
	health := c.HealthScore(in)
	now := c.clock()
	switch c.state {
	case StateNormal:
		if health < c.cfg.MinYieldSourceHealthBps || c.failures >= c.cfg.MaxConsecutiveFailures {
			c.enter(StateEmergency, fmt.Sprintf("auto: health %d bps, %d consecutive failures", health, c.failures), now)
			return c.state, true
		}
	case StateEmergency:
		if !c.cfg.AutoRecoveryEnabled {
			return c.state, false
		}
		expired := c.cfg.MaxEmergencyDuration > 0 && now.Sub(c.enteredAt) >= c.cfg.MaxEmergencyDuration
		recovered := health >= c.cfg.RecoveryHealthBps && c.failures < c.cfg.MaxConsecutiveFailures
		if expired || recovered {
			c.failures = 0
			c.enter(StateNormal, "", now)
			return c.state, true
		}
	}
	return c.state, false
}

// Trigger forces emergency mode with an operator-supplied reason.
func (c *Controller) Trigger(reason string) error {
	if c.state == StateEmergency {
		return ErrAlreadyTriggered
	}
	c.enter(StateEmergency, reason, c.clock())
	return nil
}

// Resolve exits emergency mode administratively and clears failures.
func (c *Controller) Resolve() error {
	if c.state != StateEmergency {
		return ErrNotEmergency
	}
	c.failures = 0
	c.enter(StateNormal, "", c.clock())
	return nil
}

// Pause blocks every mutating operation.
func (c *Controller) Pause(reason string) {
	c.enter(StatePaused, reason, c.clock())
}

// Resume returns a paused pool to normal operation.
func (c *Controller) Resume() {
	if c.state == StatePaused {
		c.enter(StateNormal, "", c.clock())
	}
}

// SetPartial caps deposits while leaving withdrawals unrestricted.
func (c *Controller) SetPartial(reason string) {
	c.enter(StatePartial, reason, c.clock())
}

func (c *Controller) enter(state State, reason string, now time.Time) {
	c.state = state
	c.reason = reason
	c.enteredAt = now
}

// AllowDeposit gates deposits for the current state.
func (c *Controller) AllowDeposit(amount *big.Int) error {
	switch c.state {
	case StatePaused:
		return ErrPaused
	case StateEmergency:
		return ErrDepositsBlocked
	case StatePartial:
		limit := c.cfg.PartialModeDepositCap
		if limit != nil && limit.Sign() > 0 && amount != nil && amount.Cmp(limit) > 0 {
			return ErrDepositCapExceeded
		}
	}
	return nil
}

// AllowWithdraw gates withdrawals; only a full pause blocks them.
func (c *Controller) AllowWithdraw() error {
	if c.state == StatePaused {
		return ErrPaused
	}
	return nil
}

// AllowDraw gates draw starts. Draws stay closed while paused or in
// emergency mode.
func (c *Controller) AllowDraw() error {
	switch c.state {
	case StatePaused, StateEmergency:
		return ErrDrawsBlocked
	}
	return nil
}

// SkipCompounding reports whether reward compounding should be skipped to
// minimise risk in the current state.
func (c *Controller) SkipCompounding() bool {
	return c.state == StateEmergency
}

// UseBufferFallback reports whether withdrawals may fall back to the liquid
// buffer on connector shortfall.
func (c *Controller) UseBufferFallback() bool {
	return c.state == StateEmergency
}
