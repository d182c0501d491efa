package events

import "math/big"

const (
	// TypePoolDeposit is emitted when a deposit is accepted into a pool.
	TypePoolDeposit = "pool.deposit"
	// TypePoolWithdraw is emitted when a withdrawal settles.
	TypePoolWithdraw = "pool.withdraw"
	// TypePoolRewardsProcessed is emitted after one reward-processing round.
	TypePoolRewardsProcessed = "pool.rewards_processed"
	// TypePoolDrawStarted is emitted when a draw receipt is created.
	TypePoolDrawStarted = "pool.draw_started"
	// TypePoolDrawCompleted is emitted when a draw settles, win or rollover.
	TypePoolDrawCompleted = "pool.draw_completed"
	// TypePoolPrizeAwarded is emitted once per winner within a settled draw.
	TypePoolPrizeAwarded = "pool.prize_awarded"
	// TypePoolEmergencyChanged is emitted on every emergency state change.
	TypePoolEmergencyChanged = "pool.emergency_changed"
)

// PoolDeposit captures an accepted deposit.
type PoolDeposit struct {
	PoolID   uint64
	Receiver string
	Amount   *big.Int
	Staked   *big.Int
}

// EventType implements Event.
func (PoolDeposit) EventType() string { return TypePoolDeposit }

// PoolWithdraw captures a settled withdrawal.
type PoolWithdraw struct {
	PoolID     uint64
	Receiver   string
	Amount     *big.Int
	FromBuffer *big.Int
}

// EventType implements Event.
func (PoolWithdraw) EventType() string { return TypePoolWithdraw }

// PoolRewardsProcessed summarises one reward split.
type PoolRewardsProcessed struct {
	PoolID   uint64
	Total    *big.Int
	Savings  *big.Int
	Lottery  *big.Int
	Treasury *big.Int
	Dust     *big.Int
}

// EventType implements Event.
func (PoolRewardsProcessed) EventType() string { return TypePoolRewardsProcessed }

// PoolDrawStarted captures a freshly created draw receipt.
type PoolDrawStarted struct {
	PoolID    uint64
	Round     uint64
	ReceiptID string
	Prize     *big.Int
	Entrants  int
}

// EventType implements Event.
func (PoolDrawStarted) EventType() string { return TypePoolDrawStarted }

// PoolDrawCompleted captures the settlement of a draw.
type PoolDrawCompleted struct {
	PoolID     uint64
	Round      uint64
	ReceiptID  string
	Awarded    *big.Int
	Winners    int
	RolledOver bool
}

// EventType implements Event.
func (PoolDrawCompleted) EventType() string { return TypePoolDrawCompleted }

// PoolPrizeAwarded captures one winner's prize within a settled draw.
type PoolPrizeAwarded struct {
	PoolID      uint64
	Round       uint64
	Receiver    string
	Amount      *big.Int
	AuxPrizeIDs []uint64
}

// EventType implements Event.
func (PoolPrizeAwarded) EventType() string { return TypePoolPrizeAwarded }

// PoolEmergencyChanged captures an emergency controller transition.
type PoolEmergencyChanged struct {
	PoolID uint64
	State  string
	Reason string
}

// EventType implements Event.
func (PoolEmergencyChanged) EventType() string { return TypePoolEmergencyChanged }
