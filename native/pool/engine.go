// Package pool implements the prize-linked savings pool aggregate: deposits
// routed to a yield connector, proportional interest via the savings
// accumulator, a periodic weighted lottery over the prize portion, and the
// treasury ledger for fees and rounding dust. Execution is transaction-serial
// per pool; a single mutex funnels every mutating entry point.
package pool

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"prizepool/core/events"
	"prizepool/native/draw"
	"prizepool/native/emergency"
	"prizepool/native/lottery"
	"prizepool/native/savings"
	"prizepool/native/treasury"
	"prizepool/random"
	"prizepool/yield"
)

// Engine is the aggregate root for one pool. Funds are exclusively owned by
// the pool: every transfer is an atomic debit/credit pair against the
// connector, the liquid buffer, the prize pool, or the treasury ledger.
type Engine struct {
	mu sync.Mutex

	id  uint64
	cfg Config

	accounts       map[string]*Account
	accum          *savings.Accumulator
	totalDeposited *big.Int
	totalStaked    *big.Int
	buffer         *big.Int
	prizePool      *big.Int

	treasury *treasury.Ledger
	funding  *treasury.FundingPolicy
	breaker  *emergency.Controller
	draws    *draw.Engine

	connector      yield.Connector
	oracle         yield.PriceOracle
	connectorAsset string
	tracker        lottery.WinnerTracker
	emitter        events.Emitter

	snapshotQueue []string
	roles         map[string]Role
	clock         func() time.Time
}

// NewEngine constructs a pool. The owner receives every admin permission.
func NewEngine(id uint64, cfg Config, connector yield.Connector, provider random.Provider, owner string) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if connector == nil {
		return nil, fmt.Errorf("%w: yield connector required", ErrInvalidConfig)
	}
	breaker, err := emergency.NewController(cfg.Emergency)
	if err != nil {
		return nil, err
	}
	draws, err := draw.NewEngine(provider, cfg.Strategy, cfg.DrawInterval)
	if err != nil {
		return nil, err
	}
	engine := &Engine{
		id:             id,
		cfg:            cfg,
		accounts:       make(map[string]*Account),
		accum:          savings.NewAccumulator(),
		totalDeposited: big.NewInt(0),
		totalStaked:    big.NewInt(0),
		buffer:         big.NewInt(0),
		prizePool:      big.NewInt(0),
		treasury:       treasury.NewLedger(),
		funding:        treasury.NewFundingPolicy(),
		breaker:        breaker,
		draws:          draws,
		connector:      connector,
		emitter:        events.NoopEmitter{},
		roles:          make(map[string]Role),
		clock:          time.Now,
	}
	if owner != "" {
		engine.roles[owner] = RoleAll
	}
	return engine, nil
}

// SetClock overrides the time source for deterministic testing. The clock
// propagates to the draw engine, the treasury, and the emergency controller.
func (e *Engine) SetClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = clock
	e.draws.SetClock(clock)
	e.treasury.SetClock(clock)
	e.breaker.SetClock(clock)
}

// SetEmitter installs an event sink; nil restores the discarding default.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetWinnerTracker installs an optional sink notified of every cash award.
func (e *Engine) SetWinnerTracker(tracker lottery.WinnerTracker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker = tracker
}

// SetPriceOracle configures valuation of a connector balance denominated in
// a different asset than the pool's. Only the health check consumes it.
func (e *Engine) SetPriceOracle(oracle yield.PriceOracle, connectorAsset string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.oracle = oracle
	e.connectorAsset = connectorAsset
}

// ID returns the pool identifier.
func (e *Engine) ID() uint64 { return e.id }

// Asset returns the pool's asset symbol.
func (e *Engine) Asset() string { return e.cfg.Asset }

// Deposit adds funds to the receiver's account, compounding any pending
// interest first, and places the new principal with the yield connector.
func (e *Engine) Deposit(receiver string, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if receiver == "" {
		return ErrUnknownAccount
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if e.cfg.MinDeposit != nil && e.cfg.MinDeposit.Sign() > 0 && amount.Cmp(e.cfg.MinDeposit) < 0 {
		return ErrBelowMinimum
	}
	if err := e.breaker.AllowDeposit(amount); err != nil {
		return err
	}

	acct, ok := e.accounts[receiver]
	if !ok {
		acct = newAccount()
		e.accounts[receiver] = acct
	}
	e.compound(receiver, acct)

	wasZero := acct.Deposit.Sign() == 0
	acct.Deposit.Add(acct.Deposit, amount)
	e.totalDeposited.Add(e.totalDeposited, amount)
	if wasZero || !e.accum.HasAccount(receiver) {
		// Re-anchoring here is what prevents a redeposit from claiming
		// interest accrued during a zero-balance interval.
		e.accum.InitializeAccount(receiver, acct.Deposit)
	} else {
		e.accum.UpdateBaseline(receiver, acct.Deposit)
	}

	staked := e.stake(amount)
	e.emitter.Emit(events.PoolDeposit{
		PoolID:   e.id,
		Receiver: receiver,
		Amount:   new(big.Int).Set(amount),
		Staked:   staked,
	})
	return nil
}

// Withdraw removes funds from the receiver's account, pulling from the yield
// connector first. In emergency mode a connector shortfall falls back to the
// liquid buffer; otherwise the shortfall fails the withdrawal and feeds the
// emergency controller's failure counter.
func (e *Engine) Withdraw(receiver string, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.breaker.AllowWithdraw(); err != nil {
		return err
	}
	acct, ok := e.accounts[receiver]
	if !ok {
		return ErrUnknownAccount
	}
	available := new(big.Int).Add(acct.Deposit, e.accum.PendingInterest(receiver, acct.Deposit))
	if available.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	pulled, err := e.connector.Withdraw(new(big.Int).Set(amount))
	if err != nil || pulled == nil {
		pulled = big.NewInt(0)
	}
	e.unstake(pulled)
	fromBuffer := big.NewInt(0)
	if pulled.Cmp(amount) < 0 {
		shortfall := new(big.Int).Sub(amount, pulled)
		if !e.breaker.UseBufferFallback() || e.buffer.Cmp(shortfall) < 0 {
			// Pulled funds stay in the buffer; nothing else moved.
			e.buffer.Add(e.buffer, pulled)
			e.breaker.RecordWithdrawalFailure()
			e.evaluateHealth()
			return ErrConnectorShortfall
		}
		e.buffer.Sub(e.buffer, shortfall)
		fromBuffer = shortfall
	}
	e.breaker.RecordWithdrawalSuccess()

	e.compound(receiver, acct)
	acct.Deposit.Sub(acct.Deposit, amount)
	e.totalDeposited.Sub(e.totalDeposited, amount)
	e.accum.UpdateBaseline(receiver, acct.Deposit)

	e.emitter.Emit(events.PoolWithdraw{
		PoolID:     e.id,
		Receiver:   receiver,
		Amount:     new(big.Int).Set(amount),
		FromBuffer: fromBuffer,
	})
	return nil
}

// ClaimInterest compounds the receiver's pending interest into its deposit
// and returns the claimed amount.
func (e *Engine) ClaimInterest(receiver string) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[receiver]
	if !ok {
		return nil, ErrUnknownAccount
	}
	return e.compound(receiver, acct), nil
}

// ClaimAuxPrize removes and returns the pending auxiliary prize at index for
// the receiver. Cash prizes auto-compound; auxiliary prizes are pull-claimed.
func (e *Engine) ClaimAuxPrize(receiver string, index int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[receiver]
	if !ok {
		return 0, ErrUnknownAccount
	}
	if index < 0 || index >= len(acct.PendingAuxPrizes) {
		return 0, ErrNoPendingClaim
	}
	id := acct.PendingAuxPrizes[index]
	acct.PendingAuxPrizes = append(acct.PendingAuxPrizes[:index], acct.PendingAuxPrizes[index+1:]...)
	return id, nil
}

// ProcessRewards pulls surplus yield from the connector and splits it into
// savings (fed to the accumulator), lottery (prize pool), and treasury
// portions. Rounding dust from the savings distribution sweeps to the
// treasury so the pool conserves funds exactly. Skipped entirely while the
// emergency controller says compounding is too risky.
func (e *Engine) ProcessRewards() (*RewardsReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &RewardsReport{
		Total:    big.NewInt(0),
		Savings:  big.NewInt(0),
		Lottery:  big.NewInt(0),
		Treasury: big.NewInt(0),
		Dust:     big.NewInt(0),
	}
	if e.breaker.SkipCompounding() {
		report.Skipped = true
		return report, nil
	}

	available, err := e.connector.Available()
	if err != nil {
		return nil, fmt.Errorf("pool: query connector: %w", err)
	}
	surplus := new(big.Int).Sub(available, e.totalStaked)
	if surplus.Sign() <= 0 {
		return report, nil
	}
	if surplus.Cmp(savings.MaxDistribution()) > 0 {
		return nil, savings.ErrAmountOverflow
	}

	pulled, err := e.connector.Withdraw(surplus)
	if err != nil {
		return nil, fmt.Errorf("pool: pull surplus: %w", err)
	}
	if pulled.Sign() <= 0 {
		return report, nil
	}
	e.buffer.Add(e.buffer, pulled)

	savingsPart := splitBps(pulled, e.cfg.SavingsBps)
	lotteryPart := splitBps(pulled, e.cfg.LotteryBps)
	treasuryPart := new(big.Int).Sub(pulled, savingsPart)
	treasuryPart.Sub(treasuryPart, lotteryPart)

	dust := big.NewInt(0)
	if e.totalDeposited.Sign() == 0 {
		// No depositors to attribute to; the savings portion is absorbed
		// by the treasury instead of inflating the index.
		treasuryPart.Add(treasuryPart, savingsPart)
		savingsPart = big.NewInt(0)
	} else if savingsPart.Sign() > 0 {
		dust, err = e.accum.Distribute(savingsPart, e.totalDeposited)
		if err != nil {
			return nil, err
		}
		treasuryPart.Add(treasuryPart, dust)
	}

	e.prizePool.Add(e.prizePool, lotteryPart)
	if treasuryPart.Sign() > 0 {
		e.buffer.Sub(e.buffer, treasuryPart)
		if err := e.treasury.Credit(treasuryPart); err != nil {
			return nil, err
		}
	}

	// The savings and lottery portions keep earning: they leave the buffer
	// for the connector, with stake re-crediting whatever is not accepted.
	restake := new(big.Int).Sub(pulled, treasuryPart)
	e.buffer.Sub(e.buffer, restake)
	e.stake(restake)

	report.Total = new(big.Int).Set(pulled)
	report.Savings = new(big.Int).Sub(savingsPart, dust)
	report.Lottery = lotteryPart
	report.Treasury = new(big.Int).Set(treasuryPart)
	report.Dust = dust
	e.emitter.Emit(events.PoolRewardsProcessed{
		PoolID:   e.id,
		Total:    new(big.Int).Set(report.Total),
		Savings:  new(big.Int).Set(report.Savings),
		Lottery:  new(big.Int).Set(report.Lottery),
		Treasury: new(big.Int).Set(report.Treasury),
		Dust:     new(big.Int).Set(report.Dust),
	})
	return report, nil
}

// StartDraw snapshots every account's time-weighted stake and opens a draw
// over the current prize pool. The snapshot happens before any compounding
// this round so processing the round's own yield cannot influence its odds.
func (e *Engine) StartDraw() (*draw.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.breaker.AllowDraw(); err != nil {
		return nil, err
	}
	stakes := e.snapshotStakes(e.sortedReceivers())
	receipt, err := e.draws.StartDraw(stakes, e.prizePool)
	if err != nil {
		return nil, err
	}
	e.emitDrawStarted(receipt)
	return receipt, nil
}

// BeginDrawSnapshot opens a batched draw start for large populations. The
// caller drains the account set with SnapshotBatch and then seals the draw
// with FinishDrawSnapshot.
func (e *Engine) BeginDrawSnapshot() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.breaker.AllowDraw(); err != nil {
		return err
	}
	if e.snapshotQueue != nil {
		return ErrSnapshotInProgress
	}
	if err := e.draws.BeginDraw(e.prizePool); err != nil {
		return err
	}
	e.snapshotQueue = e.sortedReceivers()
	return nil
}

// SnapshotBatch captures up to limit further accounts into the open draw
// snapshot and reports whether the account set is exhausted.
func (e *Engine) SnapshotBatch(limit int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshotQueue == nil {
		return false, ErrNoSnapshot
	}
	if limit <= 0 || limit > len(e.snapshotQueue) {
		limit = len(e.snapshotQueue)
	}
	batch := e.snapshotQueue[:limit]
	e.snapshotQueue = e.snapshotQueue[limit:]
	if err := e.draws.AppendStakes(e.snapshotStakes(batch)); err != nil {
		return false, err
	}
	return len(e.snapshotQueue) == 0, nil
}

// FinishDrawSnapshot seals a batched snapshot and requests randomness.
func (e *Engine) FinishDrawSnapshot() (*draw.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshotQueue == nil {
		return nil, ErrNoSnapshot
	}
	if len(e.snapshotQueue) > 0 {
		return nil, ErrSnapshotInProgress
	}
	e.snapshotQueue = nil
	receipt, err := e.draws.RequestRandomness()
	if err != nil {
		return nil, err
	}
	e.emitDrawStarted(receipt)
	return receipt, nil
}

// CompleteDraw resolves the pending draw's randomness, selects winners, and
// compounds each cash prize into the winner's deposit the same way ordinary
// interest compounds. A rolled-over outcome leaves the prize pool untouched.
func (e *Engine) CompleteDraw() (*lottery.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcome, receipt, err := e.draws.CompleteDraw()
	if err != nil {
		return nil, err
	}
	for _, winner := range outcome.Winners {
		acct, ok := e.accounts[winner.Receiver]
		if !ok {
			acct = newAccount()
			e.accounts[winner.Receiver] = acct
		}
		e.compound(winner.Receiver, acct)
		wasZero := acct.Deposit.Sign() == 0
		acct.Deposit.Add(acct.Deposit, winner.Amount)
		acct.TotalEarnedPrizes.Add(acct.TotalEarnedPrizes, winner.Amount)
		e.totalDeposited.Add(e.totalDeposited, winner.Amount)
		if wasZero || !e.accum.HasAccount(winner.Receiver) {
			e.accum.InitializeAccount(winner.Receiver, acct.Deposit)
		} else {
			e.accum.UpdateBaseline(winner.Receiver, acct.Deposit)
		}
		acct.PendingAuxPrizes = append(acct.PendingAuxPrizes, winner.AuxPrizeIDs...)
		if e.tracker != nil {
			e.tracker.RecordWinner(e.id, receipt.Round, winner.Receiver, new(big.Int).Set(winner.Amount), winner.AuxPrizeIDs)
		}
		e.emitter.Emit(events.PoolPrizeAwarded{
			PoolID:      e.id,
			Round:       receipt.Round,
			Receiver:    winner.Receiver,
			Amount:      new(big.Int).Set(winner.Amount),
			AuxPrizeIDs: winner.AuxPrizeIDs,
		})
	}
	e.prizePool.Sub(e.prizePool, outcome.TotalAwarded)
	e.emitter.Emit(events.PoolDrawCompleted{
		PoolID:     e.id,
		Round:      receipt.Round,
		ReceiptID:  receipt.ID,
		Awarded:    new(big.Int).Set(outcome.TotalAwarded),
		Winners:    len(outcome.Winners),
		RolledOver: outcome.RolledOver,
	})
	return outcome, nil
}

// EvaluateHealth runs one emergency-controller evaluation against the
// connector's current balance and returns the resulting state.
func (e *Engine) EvaluateHealth() emergency.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateHealth()
}

// DrawStatus reports the draw engine's phase and readiness.
func (e *Engine) DrawStatus() draw.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draws.Status(e.prizePool)
}

// Stats returns the aggregate pool view.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		PoolID:           e.id,
		Asset:            e.cfg.Asset,
		TotalDeposited:   new(big.Int).Set(e.totalDeposited),
		TotalStaked:      new(big.Int).Set(e.totalStaked),
		Buffer:           new(big.Int).Set(e.buffer),
		PrizePool:        new(big.Int).Set(e.prizePool),
		TreasuryBalance:  e.treasury.Balance(),
		TotalDistributed: e.accum.TotalDistributed(),
		Accounts:         len(e.accounts),
		Round:            e.draws.Round(),
		EmergencyState:   e.breaker.State().String(),
	}
}

// AccountBalance returns the receiver's current balances including unclaimed
// interest. Pure query; nothing compounds.
func (e *Engine) AccountBalance(receiver string) (*Balance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[receiver]
	if !ok {
		return nil, ErrUnknownAccount
	}
	return &Balance{
		Deposit:            new(big.Int).Set(acct.Deposit),
		PendingInterest:    e.accum.PendingInterest(receiver, acct.Deposit),
		BonusWeight:        new(big.Int).Set(acct.BonusWeight),
		TotalEarnedSavings: new(big.Int).Set(acct.TotalEarnedSavings),
		TotalEarnedPrizes:  new(big.Int).Set(acct.TotalEarnedPrizes),
		PendingAuxPrizes:   append([]uint64(nil), acct.PendingAuxPrizes...),
	}, nil
}

// PreviewDeposit projects the receiver's balance after a hypothetical
// deposit, without mutating anything.
func (e *Engine) PreviewDeposit(receiver string, amount *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if e.cfg.MinDeposit != nil && e.cfg.MinDeposit.Sign() > 0 && amount.Cmp(e.cfg.MinDeposit) < 0 {
		return nil, ErrBelowMinimum
	}
	projected := new(big.Int).Set(amount)
	if acct, ok := e.accounts[receiver]; ok {
		projected.Add(projected, acct.Deposit)
		projected.Add(projected, e.accum.PendingInterest(receiver, acct.Deposit))
	}
	return projected, nil
}

// EmergencyInfo returns the controller's observable state.
func (e *Engine) EmergencyInfo() emergency.Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breaker.Snapshot()
}

// TreasuryHistory returns the treasury's withdrawal records.
func (e *Engine) TreasuryHistory() []treasury.WithdrawalRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.treasury.History()
}

func (e *Engine) compound(receiver string, acct *Account) *big.Int {
	if !e.accum.HasAccount(receiver) {
		return big.NewInt(0)
	}
	claimed, err := e.accum.Claim(receiver, acct.Deposit)
	if err != nil || claimed.Sign() == 0 {
		return big.NewInt(0)
	}
	acct.Deposit.Add(acct.Deposit, claimed)
	acct.TotalEarnedSavings.Add(acct.TotalEarnedSavings, claimed)
	e.totalDeposited.Add(e.totalDeposited, claimed)
	e.accum.UpdateBaseline(receiver, acct.Deposit)
	return claimed
}

// stake pushes amount to the connector, tracking whatever it accepts as
// staked and retaining the rest in the liquid buffer. Returns the accepted
// portion.
func (e *Engine) stake(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	accepted, err := e.connector.Deposit(new(big.Int).Set(amount))
	if err != nil || accepted == nil {
		accepted = big.NewInt(0)
	}
	e.totalStaked.Add(e.totalStaked, accepted)
	remainder := new(big.Int).Sub(amount, accepted)
	if remainder.Sign() > 0 {
		e.buffer.Add(e.buffer, remainder)
	}
	return accepted
}

func (e *Engine) unstake(pulled *big.Int) {
	if pulled == nil || pulled.Sign() <= 0 {
		return
	}
	if e.totalStaked.Cmp(pulled) < 0 {
		e.totalStaked.SetInt64(0)
		return
	}
	e.totalStaked.Sub(e.totalStaked, pulled)
}

func (e *Engine) evaluateHealth() emergency.State {
	before := e.breaker.State()
	state, changed := e.breaker.Evaluate(e.healthInput())
	if changed && state != before {
		info := e.breaker.Snapshot()
		e.emitter.Emit(events.PoolEmergencyChanged{PoolID: e.id, State: state.String(), Reason: info.Reason})
	}
	return state
}

func (e *Engine) healthInput() emergency.HealthInput {
	in := emergency.HealthInput{TotalStaked: new(big.Int).Set(e.totalStaked)}
	available, err := e.connector.Available()
	if err != nil {
		in.ConnectorFailed = true
		return in
	}
	in.ConnectorAvailable = e.valueInPoolAsset(available)
	return in
}

// valueInPoolAsset converts a connector balance into the pool's asset using
// the configured oracle when the denominations differ.
func (e *Engine) valueInPoolAsset(balance *big.Int) *big.Int {
	if e.oracle == nil || e.connectorAsset == "" || e.connectorAsset == e.cfg.Asset {
		return balance
	}
	rate, ok := e.oracle.Price(e.connectorAsset)
	if !ok || rate.Sign() <= 0 {
		return balance
	}
	valued := new(big.Int).Mul(balance, rate.Num())
	return valued.Quo(valued, rate.Denom())
}

func (e *Engine) sortedReceivers() []string {
	receivers := make([]string, 0, len(e.accounts))
	for receiver := range e.accounts {
		receivers = append(receivers, receiver)
	}
	sort.Strings(receivers)
	return receivers
}

// snapshotStakes computes each receiver's time-weighted stake: deposit plus
// unclaimed pending interest plus any bonus weight.
func (e *Engine) snapshotStakes(receivers []string) []lottery.Stake {
	stakes := make([]lottery.Stake, 0, len(receivers))
	for _, receiver := range receivers {
		acct, ok := e.accounts[receiver]
		if !ok {
			continue
		}
		weight := new(big.Int).Add(acct.Deposit, e.accum.PendingInterest(receiver, acct.Deposit))
		weight.Add(weight, acct.BonusWeight)
		if weight.Sign() <= 0 {
			continue
		}
		stakes = append(stakes, lottery.Stake{Receiver: receiver, Weight: weight})
	}
	return stakes
}

func (e *Engine) emitDrawStarted(receipt *draw.Receipt) {
	e.emitter.Emit(events.PoolDrawStarted{
		PoolID:    e.id,
		Round:     receipt.Round,
		ReceiptID: receipt.ID,
		Prize:     new(big.Int).Set(receipt.PrizeAmount),
		Entrants:  len(receipt.Stakes),
	})
}

func splitBps(amount *big.Int, bps uint64) *big.Int {
	part := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return part.Quo(part, big.NewInt(BpsDenominator))
}
