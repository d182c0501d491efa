package lottery

import (
	"errors"
	"math/big"
)

const (
	// BpsDenominator is the fixed denominator for split ratios.
	BpsDenominator = 10000
)

var (
	ErrNilPrize       = errors.New("lottery: prize amount must be set")
	ErrInvalidSplits  = errors.New("lottery: split ratios must be positive and sum to 10000 bps")
	ErrSplitImbalance = errors.New("lottery: remainder deviates more than 1% from nominal split")
	ErrInvalidTiers   = errors.New("lottery: tier configuration invalid")
	ErrNegativeWeight = errors.New("lottery: stake weight cannot be negative")
)

// Stake pairs a receiver with its draw weight (deposit + pending interest +
// bonus weight, snapshotted before the round's compounding).
type Stake struct {
	Receiver string
	Weight   *big.Int
}

// Winner captures one selected receiver together with its cash prize and any
// auxiliary prize identifiers bound to its winning position.
type Winner struct {
	Receiver    string
	Amount      *big.Int
	AuxPrizeIDs []uint64
}

// Outcome summarises a completed selection. RolledOver reports that the
// strategy declined to draw (empty pool or unmet tier preconditions) and the
// prize must carry to the next round unreduced.
type Outcome struct {
	Winners      []Winner
	TotalAwarded *big.Int
	RolledOver   bool
}

// Strategy is the closed set of winner-selection behaviours. Implementations
// must award at most totalPrize in aggregate and reconcile exactly for
// multi-winner splits.
type Strategy interface {
	SelectWinners(seed uint64, stakes []Stake, totalPrize *big.Int) (*Outcome, error)
	Validate() error
}

// WinnerTracker is an optional sink notified of every cash award.
type WinnerTracker interface {
	RecordWinner(poolID, round uint64, receiver string, amount *big.Int, auxPrizeIDs []uint64)
}

func rolledOver() *Outcome {
	return &Outcome{Winners: []Winner{}, TotalAwarded: big.NewInt(0), RolledOver: true}
}

func copyWeight(w *big.Int) *big.Int {
	if w == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(w)
}
