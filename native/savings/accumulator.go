package savings

import (
	"math/big"

	"github.com/holiman/uint256"
)

// PrecisionDecimals is the number of fractional digits carried by the
// per-share index. The precision constant trades resolution against the
// largest single distribution that fits the 256-bit intermediate product:
// with 1e12 the index resolves 1e-12 units per share while the distribute
// ceiling remains floor((2^256-1)/1e12) base units, far above any realistic
// pool. A larger precision shrinks the ceiling proportionally.
const PrecisionDecimals = 12

// Precision is the fixed-point scale applied to the per-share index.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(PrecisionDecimals), nil)

var precision256 = uint256.MustFromBig(Precision)

// MaxDistribution returns the largest amount a single Distribute call will
// accept without overflowing the 256-bit scaled product.
func MaxDistribution() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	max.Sub(max, big.NewInt(1))
	return max.Quo(max, Precision)
}

// Accumulator implements O(1) proportional interest distribution. A single
// monotonically non-decreasing per-share index stands in for per-account
// bookkeeping; each account carries only the baseline recorded at its last
// reconciliation.
type Accumulator struct {
	perShare         *big.Int
	totalDistributed *big.Int
	baselines        map[string]*big.Int
}

// NewAccumulator returns an empty accumulator with a zero index.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		perShare:         big.NewInt(0),
		totalDistributed: big.NewInt(0),
		baselines:        make(map[string]*big.Int),
	}
}

// AccumulatedPerShare exposes the current index, scaled by Precision.
func (a *Accumulator) AccumulatedPerShare() *big.Int {
	return new(big.Int).Set(a.perShare)
}

// TotalDistributed reports the cumulative amount fed through Distribute.
func (a *Accumulator) TotalDistributed() *big.Int {
	return new(big.Int).Set(a.totalDistributed)
}

// Distribute spreads amount proportionally across all current deposits by
// advancing the per-share index. It returns the rounding dust that the
// flooring division cannot attribute to any share; the caller must sweep it
// to the treasury so the pool conserves funds exactly.
func (a *Accumulator) Distribute(amount, totalDeposited *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if totalDeposited == nil || totalDeposited.Sign() == 0 {
		return nil, ErrNoDeposits
	}
	scaled, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	if _, overflow := new(uint256.Int).MulOverflow(scaled, precision256); overflow {
		return nil, ErrAmountOverflow
	}

	delta := new(big.Int).Mul(amount, Precision)
	delta.Quo(delta, totalDeposited)

	attributed := new(big.Int).Mul(delta, totalDeposited)
	attributed.Quo(attributed, Precision)
	dust := new(big.Int).Sub(amount, attributed)
	if dust.Sign() < 0 {
		dust = big.NewInt(0)
	}

	a.perShare.Add(a.perShare, delta)
	a.totalDistributed.Add(a.totalDistributed, amount)
	return dust, nil
}

// InitializeAccount records the baseline for a receiver at the current index.
// It must be called on the first deposit and again on any redeposit after the
// balance reached exactly zero; otherwise the account would retroactively
// claim interest accrued while it held no stake.
func (a *Accumulator) InitializeAccount(receiver string, deposit *big.Int) {
	a.baselines[receiver] = a.earned(deposit)
}

// RemoveAccount drops the baseline for a receiver. Callers keep historical
// counters elsewhere; the accumulator only needs baselines for live stakes.
func (a *Accumulator) RemoveAccount(receiver string) {
	delete(a.baselines, receiver)
}

// HasAccount reports whether a baseline exists for the receiver.
func (a *Accumulator) HasAccount(receiver string) bool {
	_, ok := a.baselines[receiver]
	return ok
}

// PendingInterest computes the unclaimed interest for a receiver holding the
// supplied deposit. Pure query; the baseline is left untouched.
func (a *Accumulator) PendingInterest(receiver string, deposit *big.Int) *big.Int {
	baseline, ok := a.baselines[receiver]
	if !ok {
		return big.NewInt(0)
	}
	pending := a.earned(deposit)
	pending.Sub(pending, baseline)
	if pending.Sign() < 0 {
		return big.NewInt(0)
	}
	return pending
}

// Claim returns the pending interest for the receiver and advances the
// baseline to the current total-earned value.
func (a *Accumulator) Claim(receiver string, deposit *big.Int) (*big.Int, error) {
	if _, ok := a.baselines[receiver]; !ok {
		return nil, ErrUnknownAccount
	}
	pending := a.PendingInterest(receiver, deposit)
	a.baselines[receiver] = a.earned(deposit)
	return pending, nil
}

// UpdateBaseline re-anchors the baseline after the deposit changed for any
// reason other than a freshly claimed compounding (e.g. a withdrawal). The
// caller must have claimed or forfeited pending interest first.
func (a *Accumulator) UpdateBaseline(receiver string, newDeposit *big.Int) {
	a.baselines[receiver] = a.earned(newDeposit)
}

// Baseline returns the stored baseline for a receiver, zero when absent.
func (a *Accumulator) Baseline(receiver string) *big.Int {
	baseline, ok := a.baselines[receiver]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(baseline)
}

// Restore rehydrates accumulator state from a persisted snapshot.
func (a *Accumulator) Restore(perShare, totalDistributed *big.Int, baselines map[string]*big.Int) {
	a.perShare = copyBigInt(perShare)
	a.totalDistributed = copyBigInt(totalDistributed)
	a.baselines = make(map[string]*big.Int, len(baselines))
	for receiver, baseline := range baselines {
		a.baselines[receiver] = copyBigInt(baseline)
	}
}

// Baselines returns a deep copy of all stored baselines for persistence.
func (a *Accumulator) Baselines() map[string]*big.Int {
	out := make(map[string]*big.Int, len(a.baselines))
	for receiver, baseline := range a.baselines {
		out[receiver] = new(big.Int).Set(baseline)
	}
	return out
}

func (a *Accumulator) earned(deposit *big.Int) *big.Int {
	if deposit == nil || deposit.Sign() <= 0 {
		return big.NewInt(0)
	}
	earned := new(big.Int).Mul(deposit, a.perShare)
	return earned.Quo(earned, Precision)
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
