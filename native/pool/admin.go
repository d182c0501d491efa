package pool

import (
	"math/big"
	"time"

	"prizepool/core/events"
	"prizepool/native/lottery"
	"prizepool/native/savings"
	"prizepool/native/treasury"
)

// Admin entry points. Each call names the acting identity and is gated by
// the permission set granted to it; the pool does not prescribe how actors
// authenticate, only which permission a mutation requires.

func (e *Engine) authorize(actor string, want Role) error {
	if !e.roles[actor].Has(want) {
		return ErrPermissionDenied
	}
	return nil
}

// Grant assigns a permission set to an actor. Only holders of the full
// permission set may grant. A zero role revokes.
func (e *Engine) Grant(actor, grantee string, roles Role) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleAll); err != nil {
		return err
	}
	if roles == 0 {
		delete(e.roles, grantee)
		return nil
	}
	e.roles[grantee] = roles
	return nil
}

// Roles reports the permission set granted to an actor.
func (e *Engine) Roles(actor string) Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles[actor]
}

// SetDrawInterval updates the minimum spacing between draws.
func (e *Engine) SetDrawInterval(actor string, interval time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleConfigure); err != nil {
		return err
	}
	if interval < 0 {
		return ErrInvalidConfig
	}
	e.cfg.DrawInterval = interval
	e.draws.SetInterval(interval)
	return nil
}

// SetStrategy swaps the winner-selection strategy. Fails while a draw is in
// flight so pending receipts settle under the strategy they started with.
func (e *Engine) SetStrategy(actor string, strategy lottery.Strategy) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleConfigure); err != nil {
		return err
	}
	if err := e.draws.SetStrategy(strategy); err != nil {
		return err
	}
	e.cfg.Strategy = strategy
	return nil
}

// SetSplits updates the reward distribution ratios.
func (e *Engine) SetSplits(actor string, savingsBps, lotteryBps, treasuryBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleConfigure); err != nil {
		return err
	}
	if savingsBps+lotteryBps+treasuryBps != BpsDenominator {
		return ErrInvalidConfig
	}
	e.cfg.SavingsBps = savingsBps
	e.cfg.LotteryBps = lotteryBps
	e.cfg.TreasuryBps = treasuryBps
	return nil
}

// SetMinDeposit updates the minimum accepted deposit.
func (e *Engine) SetMinDeposit(actor string, minimum *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleConfigure); err != nil {
		return err
	}
	if minimum == nil || minimum.Sign() < 0 {
		return ErrInvalidConfig
	}
	e.cfg.MinDeposit = new(big.Int).Set(minimum)
	return nil
}

// SetBonusWeight sets extra lottery weight for a receiver that is not backed
// by deposit. The account must already exist.
func (e *Engine) SetBonusWeight(actor, receiver string, weight *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleBonus); err != nil {
		return err
	}
	acct, ok := e.accounts[receiver]
	if !ok {
		return ErrUnknownAccount
	}
	if weight == nil || weight.Sign() < 0 {
		return ErrInvalidAmount
	}
	acct.BonusWeight = new(big.Int).Set(weight)
	return nil
}

// TriggerEmergency forces emergency mode with an operator reason.
func (e *Engine) TriggerEmergency(actor, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleEmergency); err != nil {
		return err
	}
	if err := e.breaker.Trigger(reason); err != nil {
		return err
	}
	e.emitEmergencyChanged()
	return nil
}

// ResolveEmergency exits emergency mode administratively.
func (e *Engine) ResolveEmergency(actor string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleEmergency); err != nil {
		return err
	}
	if err := e.breaker.Resolve(); err != nil {
		return err
	}
	e.emitEmergencyChanged()
	return nil
}

// Pause blocks every mutating pool operation.
func (e *Engine) Pause(actor, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleEmergency); err != nil {
		return err
	}
	e.breaker.Pause(reason)
	e.emitEmergencyChanged()
	return nil
}

// Resume returns a paused pool to normal operation.
func (e *Engine) Resume(actor string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleEmergency); err != nil {
		return err
	}
	e.breaker.Resume()
	e.emitEmergencyChanged()
	return nil
}

// SetPartialMode caps deposits while leaving withdrawals unrestricted.
func (e *Engine) SetPartialMode(actor, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleEmergency); err != nil {
		return err
	}
	e.breaker.SetPartial(reason)
	e.emitEmergencyChanged()
	return nil
}

// SetFundingCap bounds direct funding for one destination; nil removes it.
func (e *Engine) SetFundingCap(actor string, dest treasury.Destination, limit *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleFunding); err != nil {
		return err
	}
	return e.funding.SetCap(dest, limit)
}

// FundDirect injects externally supplied funds into one destination, subject
// to the funding policy's caps. Savings funds distribute through the
// accumulator (absorbed by the treasury when there are no depositors),
// lottery funds grow the prize pool, treasury funds credit the ledger.
func (e *Engine) FundDirect(actor string, dest treasury.Destination, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleFunding); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.funding.RecordDirectFunding(dest, amount); err != nil {
		return err
	}
	switch dest {
	case treasury.DestinationSavings:
		if e.totalDeposited.Sign() == 0 {
			return e.treasury.Credit(amount)
		}
		dust, err := e.accum.Distribute(amount, e.totalDeposited)
		if err != nil {
			return err
		}
		e.stake(new(big.Int).Sub(amount, dust))
		if dust.Sign() > 0 {
			return e.treasury.Credit(dust)
		}
		return nil
	case treasury.DestinationLottery:
		e.prizePool.Add(e.prizePool, amount)
		e.stake(amount)
		return nil
	case treasury.DestinationTreasury:
		return e.treasury.Credit(amount)
	}
	return treasury.ErrUnknownDestination
}

// FundedTotal reports the running direct-funding total for a destination.
func (e *Engine) FundedTotal(dest treasury.Destination) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.funding.FundedTotal(dest)
}

// SetTreasuryRecipient configures the treasury forwarding sink; nil clears.
func (e *Engine) SetTreasuryRecipient(actor string, recipient treasury.Recipient) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleTreasury); err != nil {
		return err
	}
	e.treasury.SetRecipient(recipient)
	return nil
}

// WithdrawTreasury removes treasury funds for a stated purpose and records
// the withdrawal in the immutable history.
func (e *Engine) WithdrawTreasury(actor string, amount *big.Int, purpose string) (*treasury.WithdrawalRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(actor, RoleTreasury); err != nil {
		return nil, err
	}
	return e.treasury.Withdraw(amount, purpose, actor)
}

// MaxSingleDistribution exposes the accumulator's overflow-safe ceiling for
// operator tooling.
func MaxSingleDistribution() *big.Int { return savings.MaxDistribution() }

func (e *Engine) emitEmergencyChanged() {
	info := e.breaker.Snapshot()
	e.emitter.Emit(events.PoolEmergencyChanged{PoolID: e.id, State: info.State.String(), Reason: info.Reason})
}
