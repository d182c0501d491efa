package lottery

import (
	"math/big"
	"sort"
)

// sampler draws receivers without replacement, weighted by stake. Each pick
// scans a cumulative-sum array with binary search; the selected entry is
// removed and the cumulative array rebuilt before the next pick.
type sampler struct {
	entries []Stake
	cum     []*big.Int
	total   *big.Int
	stream  *drawStream
}

func newSampler(stakes []Stake, seed uint64) (*sampler, error) {
	entries := make([]Stake, 0, len(stakes))
	for _, stake := range stakes {
		if stake.Weight != nil && stake.Weight.Sign() < 0 {
			return nil, ErrNegativeWeight
		}
		entries = append(entries, Stake{Receiver: stake.Receiver, Weight: copyWeight(stake.Weight)})
	}
	s := &sampler{entries: entries, stream: newDrawStream(seed)}
	s.rebuild()
	return s, nil
}

func (s *sampler) rebuild() {
	s.cum = make([]*big.Int, len(s.entries))
	running := big.NewInt(0)
	for i, entry := range s.entries {
		running = new(big.Int).Add(running, entry.Weight)
		s.cum[i] = running
	}
	s.total = running
	if len(s.entries) == 0 {
		s.total = big.NewInt(0)
	}
}

func (s *sampler) remaining() int {
	return len(s.entries)
}

// pick selects and removes one receiver. With a zero total weight the first
// remaining receiver is returned rather than dividing by zero.
func (s *sampler) pick() (Stake, bool) {
	if len(s.entries) == 0 {
		return Stake{}, false
	}
	idx := 0
	if s.total.Sign() > 0 {
		target := s.stream.uintN(s.total)
		idx = sort.Search(len(s.cum), func(i int) bool {
			return s.cum[i].Cmp(target) > 0
		})
	}
	selected := s.entries[idx]
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	s.rebuild()
	return selected, true
}
