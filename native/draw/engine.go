// Package draw implements the multi-phase lottery draw state machine. The
// phases span separate externally triggered transactions, so every bit of
// in-flight state lives in the persisted receipt rather than in memory
// between calls.
package draw

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"prizepool/native/lottery"
	"prizepool/random"
)

var (
	ErrDrawPending        = errors.New("draw: a draw is already in progress")
	ErrNoDrawPending      = errors.New("draw: no draw in progress")
	ErrNotSnapshotting    = errors.New("draw: snapshot phase not open")
	ErrIntervalNotElapsed = errors.New("draw: draw interval has not elapsed")
	ErrEmptyPrizePool     = errors.New("draw: prize pool is empty")
	ErrRandomnessPending  = errors.New("draw: randomness not yet available")
)

// State enumerates the draw phases.
type State uint8

const (
	StateIdle State = iota
	StateSnapshotting
	StatePendingRandomness
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSnapshotting:
		return "snapshotting"
	case StatePendingRandomness:
		return "pending_randomness"
	default:
		return "unknown"
	}
}

// Receipt is the persisted record of one in-flight draw: the prize snapshot,
// the time-weighted stakes captured before that round's compounding, and the
// outstanding randomness handle. At most one receipt exists per pool.
type Receipt struct {
	ID          string
	Round       uint64
	PrizeAmount *big.Int
	Stakes      []lottery.Stake
	Handle      random.Handle
	StartedAt   time.Time
}

func (r *Receipt) clone() *Receipt {
	if r == nil {
		return nil
	}
	clone := *r
	clone.PrizeAmount = new(big.Int).Set(r.PrizeAmount)
	clone.Stakes = make([]lottery.Stake, len(r.Stakes))
	for i, stake := range r.Stakes {
		clone.Stakes[i] = lottery.Stake{Receiver: stake.Receiver, Weight: new(big.Int).Set(stake.Weight)}
	}
	return &clone
}

// Status is a read-only view used by draw status queries.
type Status struct {
	State          State
	Round          uint64
	CanDrawNow     bool
	NextDrawAt     time.Time
	PendingReceipt string
	PrizeSnapshot  *big.Int
}

// Engine drives the Idle -> Snapshotting -> PendingRandomness -> Idle cycle.
type Engine struct {
	provider random.Provider
	strategy lottery.Strategy
	interval time.Duration
	lastDraw time.Time
	round    uint64
	receipt  *Receipt
	state    State
	clock    func() time.Time
}

// NewEngine constructs an idle engine. The first draw may start immediately;
// the interval gate applies from then on.
func NewEngine(provider random.Provider, strategy lottery.Strategy, interval time.Duration) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("draw: randomness provider required")
	}
	if strategy == nil {
		return nil, errors.New("draw: winner strategy required")
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		provider: provider,
		strategy: strategy,
		interval: interval,
		round:    1,
		state:    StateIdle,
		clock:    time.Now,
	}, nil
}

// SetClock overrides the time source for deterministic testing.
func (e *Engine) SetClock(clock func() time.Time) {
	if clock != nil {
		e.clock = clock
	}
}

// SetStrategy swaps the winner-selection strategy. Rejected while a draw is
// in flight so a pending receipt always settles under the strategy it was
// started with.
func (e *Engine) SetStrategy(strategy lottery.Strategy) error {
	if e.state != StateIdle {
		return ErrDrawPending
	}
	if strategy == nil {
		return errors.New("draw: winner strategy required")
	}
	if err := strategy.Validate(); err != nil {
		return err
	}
	e.strategy = strategy
	return nil
}

// SetInterval updates the minimum spacing between draws.
func (e *Engine) SetInterval(interval time.Duration) {
	e.interval = interval
}

// Round returns the upcoming (or in-flight) round number.
func (e *Engine) Round() uint64 { return e.round }

// State returns the current phase.
func (e *Engine) State() State { return e.state }

// Status reports the draw phase for status queries.
func (e *Engine) Status(prizeBalance *big.Int) Status {
	status := Status{
		State:      e.state,
		Round:      e.round,
		NextDrawAt: e.lastDraw.Add(e.interval),
	}
	if e.receipt != nil {
		status.PendingReceipt = e.receipt.ID
		status.PrizeSnapshot = new(big.Int).Set(e.receipt.PrizeAmount)
	}
	if e.state == StateIdle {
		status.CanDrawNow = e.intervalElapsed() && prizeBalance != nil && prizeBalance.Sign() > 0
	}
	return status
}

// CanStart reports whether StartDraw would be accepted right now.
func (e *Engine) CanStart(prizeBalance *big.Int) error {
	if e.state != StateIdle {
		return ErrDrawPending
	}
	if !e.intervalElapsed() {
		return ErrIntervalNotElapsed
	}
	if prizeBalance == nil || prizeBalance.Sign() <= 0 {
		return ErrEmptyPrizePool
	}
	return nil
}

// StartDraw runs the full start phase in one step: snapshot the supplied
// stakes, request randomness, and persist the receipt. The stakes must be
// captured before the round's compounding so that processing this round's
// yield cannot influence its own odds.
func (e *Engine) StartDraw(stakes []lottery.Stake, prizeBalance *big.Int) (*Receipt, error) {
	if err := e.BeginDraw(prizeBalance); err != nil {
		return nil, err
	}
	if err := e.AppendStakes(stakes); err != nil {
		return nil, err
	}
	return e.RequestRandomness()
}

// BeginDraw opens the snapshot phase for large populations whose stakes are
// captured in batches across several transactions.
func (e *Engine) BeginDraw(prizeBalance *big.Int) error {
	if err := e.CanStart(prizeBalance); err != nil {
		return err
	}
	now := e.clock()
	e.receipt = &Receipt{
		ID:          uuid.New().String(),
		Round:       e.round,
		PrizeAmount: new(big.Int).Set(prizeBalance),
		Stakes:      []lottery.Stake{},
		StartedAt:   now,
	}
	e.lastDraw = now
	e.state = StateSnapshotting
	return nil
}

// AppendStakes adds one batch of stake snapshots to the open receipt.
func (e *Engine) AppendStakes(stakes []lottery.Stake) error {
	if e.state != StateSnapshotting {
		return ErrNotSnapshotting
	}
	for _, stake := range stakes {
		weight := big.NewInt(0)
		if stake.Weight != nil {
			if stake.Weight.Sign() < 0 {
				return lottery.ErrNegativeWeight
			}
			weight.Set(stake.Weight)
		}
		e.receipt.Stakes = append(e.receipt.Stakes, lottery.Stake{Receiver: stake.Receiver, Weight: weight})
	}
	return nil
}

// RequestRandomness closes the snapshot and commits the randomness request,
// moving the draw to the pending phase.
func (e *Engine) RequestRandomness() (*Receipt, error) {
	if e.state != StateSnapshotting {
		return nil, ErrNotSnapshotting
	}
	handle, err := e.provider.Request()
	if err != nil {
		return nil, fmt.Errorf("draw: request randomness: %w", err)
	}
	e.receipt.Handle = handle
	e.state = StatePendingRandomness
	return e.receipt.clone(), nil
}

// CompleteDraw resolves the randomness and runs winner selection over the
// snapshot taken at start time. It fails with ErrRandomnessPending until the
// request's finality point has passed. On success the receipt is destroyed
// and the engine returns to idle; the caller applies the outcome to winner
// accounts and reduces the prize pool by Outcome.TotalAwarded.
func (e *Engine) CompleteDraw() (*lottery.Outcome, *Receipt, error) {
	if e.state != StatePendingRandomness || e.receipt == nil {
		return nil, nil, ErrNoDrawPending
	}
	seed, err := e.provider.Fulfill(e.receipt.Handle)
	if err != nil {
		if errors.Is(err, random.ErrStillPending) {
			return nil, nil, ErrRandomnessPending
		}
		return nil, nil, fmt.Errorf("draw: fulfill randomness: %w", err)
	}
	outcome, err := e.strategy.SelectWinners(seed, e.receipt.Stakes, e.receipt.PrizeAmount)
	if err != nil {
		return nil, nil, err
	}
	settled := e.receipt.clone()
	e.receipt = nil
	e.state = StateIdle
	e.round++
	return outcome, settled, nil
}

// Restore rehydrates the engine from persisted state.
func (e *Engine) Restore(state State, round uint64, lastDraw time.Time, receipt *Receipt) {
	e.state = state
	if round > 0 {
		e.round = round
	}
	e.lastDraw = lastDraw
	e.receipt = receipt.clone()
}

// LastDraw returns the timestamp of the most recent draw start.
func (e *Engine) LastDraw() time.Time { return e.lastDraw }

// Receipt returns a copy of the in-flight receipt, nil when idle.
func (e *Engine) Receipt() *Receipt { return e.receipt.clone() }

func (e *Engine) intervalElapsed() bool {
	if e.lastDraw.IsZero() {
		return true
	}
	return e.clock().Sub(e.lastDraw) >= e.interval
}
