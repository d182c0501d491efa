// Package treasury bounds and records every out-of-band fund movement: the
// per-destination funding caps and the append-only withdrawal ledger.
package treasury

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCapExceeded         = errors.New("treasury: funding cap exceeded")
	ErrUnknownDestination  = errors.New("treasury: unknown funding destination")
	ErrEmptyPurpose        = errors.New("treasury: withdrawal purpose required")
	ErrInsufficientBalance = errors.New("treasury: insufficient balance")
	ErrNegativeAmount      = errors.New("treasury: amount cannot be negative")
)

// Destination enumerates where direct funding may be routed.
type Destination string

const (
	DestinationSavings  Destination = "savings"
	DestinationLottery  Destination = "lottery"
	DestinationTreasury Destination = "treasury"
)

func (d Destination) valid() bool {
	switch d {
	case DestinationSavings, DestinationLottery, DestinationTreasury:
		return true
	}
	return false
}

// FundingPolicy caps direct funding per destination. Totals are monotone;
// a violating attempt is rejected before any total moves.
type FundingPolicy struct {
	caps   map[Destination]*big.Int
	totals map[Destination]*big.Int
}

// NewFundingPolicy returns a policy with no caps configured.
func NewFundingPolicy() *FundingPolicy {
	return &FundingPolicy{
		caps:   make(map[Destination]*big.Int),
		totals: make(map[Destination]*big.Int),
	}
}

// SetCap configures the cap for one destination. A nil cap removes the bound.
func (p *FundingPolicy) SetCap(dest Destination, limit *big.Int) error {
	if !dest.valid() {
		return ErrUnknownDestination
	}
	if limit == nil {
		delete(p.caps, dest)
		return nil
	}
	if limit.Sign() < 0 {
		return ErrNegativeAmount
	}
	p.caps[dest] = new(big.Int).Set(limit)
	return nil
}

// RecordDirectFunding adds amount to the destination's running total,
// rejecting the funding when a configured cap would be exceeded.
func (p *FundingPolicy) RecordDirectFunding(dest Destination, amount *big.Int) error {
	if !dest.valid() {
		return ErrUnknownDestination
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	total, ok := p.totals[dest]
	if !ok {
		total = big.NewInt(0)
	}
	next := new(big.Int).Add(total, amount)
	if limit, capped := p.caps[dest]; capped && next.Cmp(limit) > 0 {
		return fmt.Errorf("%w: %s total %s over cap %s", ErrCapExceeded, dest, next, limit)
	}
	p.totals[dest] = next
	return nil
}

// Caps returns a deep copy of the configured caps for persistence.
func (p *FundingPolicy) Caps() map[Destination]*big.Int {
	out := make(map[Destination]*big.Int, len(p.caps))
	for dest, limit := range p.caps {
		out[dest] = new(big.Int).Set(limit)
	}
	return out
}

// Totals returns a deep copy of the running totals for persistence.
func (p *FundingPolicy) Totals() map[Destination]*big.Int {
	out := make(map[Destination]*big.Int, len(p.totals))
	for dest, total := range p.totals {
		out[dest] = new(big.Int).Set(total)
	}
	return out
}

// Restore rehydrates the policy from persisted state.
func (p *FundingPolicy) Restore(caps, totals map[Destination]*big.Int) {
	p.caps = make(map[Destination]*big.Int, len(caps))
	for dest, limit := range caps {
		p.caps[dest] = new(big.Int).Set(limit)
	}
	p.totals = make(map[Destination]*big.Int, len(totals))
	for dest, total := range totals {
		p.totals[dest] = new(big.Int).Set(total)
	}
}

// FundedTotal reports the running total for one destination.
func (p *FundingPolicy) FundedTotal(dest Destination) *big.Int {
	total, ok := p.totals[dest]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(total)
}

// WithdrawalRecord is one immutable entry in the treasury history.
type WithdrawalRecord struct {
	ID        string
	Timestamp time.Time
	Actor     string
	Purpose   string
	Amount    *big.Int
}

// Ledger tracks the treasury balance, its lifetime inflow, and an
// append-only withdrawal history. An optional recipient sink receives
// forwarded fees as they are credited.
type Ledger struct {
	balance        *big.Int
	totalCollected *big.Int
	totalForwarded *big.Int
	history        []WithdrawalRecord
	recipient      Recipient
	clock          func() time.Time
}

// Recipient accepts forwarded treasury funds.
type Recipient interface {
	Receive(amount *big.Int) error
}

// NewLedger returns an empty treasury ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balance:        big.NewInt(0),
		totalCollected: big.NewInt(0),
		totalForwarded: big.NewInt(0),
		clock:          time.Now,
	}
}

// SetClock overrides the time source for deterministic testing.
func (l *Ledger) SetClock(clock func() time.Time) {
	if clock != nil {
		l.clock = clock
	}
}

// SetRecipient configures the forwarding sink; nil clears it.
func (l *Ledger) SetRecipient(recipient Recipient) {
	l.recipient = recipient
}

// HasRecipient reports whether forwarding is configured.
func (l *Ledger) HasRecipient() bool { return l.recipient != nil }

// Credit adds collected fees to the treasury. When a recipient is
// configured the amount forwards immediately instead of accumulating.
func (l *Ledger) Credit(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.totalCollected.Add(l.totalCollected, amount)
	if l.recipient != nil {
		if err := l.recipient.Receive(new(big.Int).Set(amount)); err != nil {
			// Forwarding failed; retain the funds instead.
			l.balance.Add(l.balance, amount)
			return nil
		}
		l.totalForwarded.Add(l.totalForwarded, amount)
		return nil
	}
	l.balance.Add(l.balance, amount)
	return nil
}

// Withdraw removes funds for a stated purpose and appends the record to the
// immutable history.
func (l *Ledger) Withdraw(amount *big.Int, purpose, actor string) (*WithdrawalRecord, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrNegativeAmount
	}
	if strings.TrimSpace(purpose) == "" {
		return nil, ErrEmptyPurpose
	}
	if l.balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	l.balance.Sub(l.balance, amount)
	record := WithdrawalRecord{
		ID:        uuid.New().String(),
		Timestamp: l.clock().UTC(),
		Actor:     strings.TrimSpace(actor),
		Purpose:   strings.TrimSpace(purpose),
		Amount:    new(big.Int).Set(amount),
	}
	l.history = append(l.history, record)
	return &record, nil
}

// Balance returns the current treasury balance.
func (l *Ledger) Balance() *big.Int {
	return new(big.Int).Set(l.balance)
}

// TotalCollected reports lifetime treasury inflow.
func (l *Ledger) TotalCollected() *big.Int {
	return new(big.Int).Set(l.totalCollected)
}

// TotalForwarded reports the amount sent on to the configured recipient.
func (l *Ledger) TotalForwarded() *big.Int {
	return new(big.Int).Set(l.totalForwarded)
}

// History returns a deep copy of the withdrawal records in append order.
func (l *Ledger) History() []WithdrawalRecord {
	out := make([]WithdrawalRecord, len(l.history))
	for i, record := range l.history {
		out[i] = record
		out[i].Amount = new(big.Int).Set(record.Amount)
	}
	return out
}

// Restore rehydrates the ledger from persisted state.
func (l *Ledger) Restore(balance, collected, forwarded *big.Int, history []WithdrawalRecord) {
	l.balance = copyBigInt(balance)
	l.totalCollected = copyBigInt(collected)
	l.totalForwarded = copyBigInt(forwarded)
	l.history = make([]WithdrawalRecord, len(history))
	for i, record := range history {
		l.history[i] = record
		l.history[i].Amount = copyBigInt(record.Amount)
	}
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
