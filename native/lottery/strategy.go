package lottery

import (
	"fmt"
	"math/big"
)

// SingleWinner awards the full prize to one weighted pick.
type SingleWinner struct {
	// AuxPrizeIDs are handed to the winner alongside the cash prize.
	AuxPrizeIDs []uint64
}

// Validate implements Strategy.
func (s SingleWinner) Validate() error { return nil }

// SelectWinners implements Strategy.
func (s SingleWinner) SelectWinners(seed uint64, stakes []Stake, totalPrize *big.Int) (*Outcome, error) {
	if totalPrize == nil {
		return nil, ErrNilPrize
	}
	if len(stakes) == 0 {
		return rolledOver(), nil
	}
	var winner Stake
	if len(stakes) == 1 {
		// Sole receiver wins outright; no randomness is consumed.
		winner = stakes[0]
	} else {
		smp, err := newSampler(stakes, seed)
		if err != nil {
			return nil, err
		}
		winner, _ = smp.pick()
	}
	amount := new(big.Int).Set(totalPrize)
	return &Outcome{
		Winners:      []Winner{{Receiver: winner.Receiver, Amount: amount, AuxPrizeIDs: append([]uint64{}, s.AuxPrizeIDs...)}},
		TotalAwarded: new(big.Int).Set(totalPrize),
	}, nil
}

// Split divides the prize across several weighted picks without replacement.
// All winners but the last receive totalPrize*split/10000; the last winner
// takes the exact remainder so the amounts always reconcile to totalPrize.
type Split struct {
	SplitsBps []uint64
	// AuxPrizeIDs maps winner positions to auxiliary prize identifiers.
	AuxPrizeIDs map[int][]uint64
}

// Validate implements Strategy.
func (s Split) Validate() error {
	if len(s.SplitsBps) == 0 {
		return ErrInvalidSplits
	}
	var sum uint64
	for _, bps := range s.SplitsBps {
		if bps == 0 {
			return ErrInvalidSplits
		}
		sum += bps
	}
	if sum != BpsDenominator {
		return ErrInvalidSplits
	}
	return nil
}

// SelectWinners implements Strategy.
func (s Split) SelectWinners(seed uint64, stakes []Stake, totalPrize *big.Int) (*Outcome, error) {
	if totalPrize == nil {
		return nil, ErrNilPrize
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(stakes) == 0 {
		return rolledOver(), nil
	}
	if len(stakes) == 1 {
		aux := append([]uint64{}, s.AuxPrizeIDs[0]...)
		return &Outcome{
			Winners:      []Winner{{Receiver: stakes[0].Receiver, Amount: new(big.Int).Set(totalPrize), AuxPrizeIDs: aux}},
			TotalAwarded: new(big.Int).Set(totalPrize),
		}, nil
	}

	smp, err := newSampler(stakes, seed)
	if err != nil {
		return nil, err
	}
	picks := len(s.SplitsBps)
	if smp.remaining() < picks {
		picks = smp.remaining()
	}

	winners := make([]Winner, 0, picks)
	awarded := big.NewInt(0)
	for i := 0; i < picks; i++ {
		pick, ok := smp.pick()
		if !ok {
			break
		}
		var amount *big.Int
		if i == picks-1 && picks == len(s.SplitsBps) {
			// Exact remainder keeps the total reconciled; guard against a
			// pathological split configuration drifting past 1% of nominal.
			amount = new(big.Int).Sub(totalPrize, awarded)
			nominal := splitAmount(totalPrize, s.SplitsBps[i])
			if err := checkRemainder(amount, nominal, totalPrize); err != nil {
				return nil, err
			}
		} else {
			amount = splitAmount(totalPrize, s.SplitsBps[i])
		}
		awarded.Add(awarded, amount)
		winners = append(winners, Winner{
			Receiver:    pick.Receiver,
			Amount:      amount,
			AuxPrizeIDs: append([]uint64{}, s.AuxPrizeIDs[i]...),
		})
	}
	return &Outcome{Winners: winners, TotalAwarded: awarded}, nil
}

// Tier describes one fixed prize band.
type Tier struct {
	PrizeAmount *big.Int
	Winners     int
	// AuxPrizeIDs are distributed one per winner slot within the tier.
	AuxPrizeIDs []uint64
}

// FixedTiers draws tier by tier, but only when the prize pool covers every
// tier in full and there are enough distinct receivers for every slot;
// otherwise no draw occurs and the prize rolls over unreduced.
type FixedTiers struct {
	Tiers []Tier
}

// Validate implements Strategy.
func (s FixedTiers) Validate() error {
	if len(s.Tiers) == 0 {
		return ErrInvalidTiers
	}
	for i, tier := range s.Tiers {
		if tier.Winners <= 0 {
			return fmt.Errorf("%w: tier %d has no winner slots", ErrInvalidTiers, i)
		}
		if tier.PrizeAmount == nil || tier.PrizeAmount.Sign() <= 0 {
			return fmt.Errorf("%w: tier %d has no prize", ErrInvalidTiers, i)
		}
	}
	return nil
}

// TotalCost returns the amount required to fund every tier in full.
func (s FixedTiers) TotalCost() *big.Int {
	cost := big.NewInt(0)
	for _, tier := range s.Tiers {
		if tier.PrizeAmount == nil {
			continue
		}
		slot := new(big.Int).Mul(tier.PrizeAmount, big.NewInt(int64(tier.Winners)))
		cost.Add(cost, slot)
	}
	return cost
}

func (s FixedTiers) totalSlots() int {
	slots := 0
	for _, tier := range s.Tiers {
		slots += tier.Winners
	}
	return slots
}

// SelectWinners implements Strategy.
func (s FixedTiers) SelectWinners(seed uint64, stakes []Stake, totalPrize *big.Int) (*Outcome, error) {
	if totalPrize == nil {
		return nil, ErrNilPrize
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(stakes) == 0 {
		return rolledOver(), nil
	}
	if totalPrize.Cmp(s.TotalCost()) < 0 || len(stakes) < s.totalSlots() {
		return rolledOver(), nil
	}

	smp, err := newSampler(stakes, seed)
	if err != nil {
		return nil, err
	}
	winners := make([]Winner, 0, s.totalSlots())
	awarded := big.NewInt(0)
	for _, tier := range s.Tiers {
		for slot := 0; slot < tier.Winners; slot++ {
			pick, ok := smp.pick()
			if !ok {
				return nil, fmt.Errorf("%w: receivers exhausted mid-tier", ErrInvalidTiers)
			}
			var aux []uint64
			if slot < len(tier.AuxPrizeIDs) {
				aux = []uint64{tier.AuxPrizeIDs[slot]}
			}
			amount := new(big.Int).Set(tier.PrizeAmount)
			awarded.Add(awarded, amount)
			winners = append(winners, Winner{Receiver: pick.Receiver, Amount: amount, AuxPrizeIDs: aux})
		}
	}
	return &Outcome{Winners: winners, TotalAwarded: awarded}, nil
}

func splitAmount(totalPrize *big.Int, bps uint64) *big.Int {
	amount := new(big.Int).Mul(totalPrize, new(big.Int).SetUint64(bps))
	return amount.Quo(amount, big.NewInt(BpsDenominator))
}

func checkRemainder(remainder, nominal, totalPrize *big.Int) error {
	deviation := new(big.Int).Sub(remainder, nominal)
	deviation.Abs(deviation)
	bound := new(big.Int).Quo(totalPrize, big.NewInt(100))
	if deviation.Cmp(bound) > 0 {
		return ErrSplitImbalance
	}
	return nil
}
