package savings

import (
	"math/big"
	"testing"
)

func TestDistributeProportionalFairness(t *testing.T) {
	acc := NewAccumulator()

	d1 := big.NewInt(600_000_000) // 6.0 units
	d2 := big.NewInt(400_000_000) // 4.0 units
	total := new(big.Int).Add(d1, d2)

	acc.InitializeAccount("alice", d1)
	acc.InitializeAccount("bob", d2)

	if _, err := acc.Distribute(big.NewInt(100_000_000), total); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	p1 := acc.PendingInterest("alice", d1)
	p2 := acc.PendingInterest("bob", d2)
	if p1.Cmp(big.NewInt(60_000_000)) != 0 {
		t.Fatalf("expected alice pending 60000000, got %s", p1)
	}
	if p2.Cmp(big.NewInt(40_000_000)) != 0 {
		t.Fatalf("expected bob pending 40000000, got %s", p2)
	}

	// Per-share yield must match regardless of deposit size:
	// p1/d1 == p2/d2 <=> p1*d2 == p2*d1.
	lhs := new(big.Int).Mul(p1, d2)
	rhs := new(big.Int).Mul(p2, d1)
	if lhs.Cmp(rhs) != 0 {
		t.Fatalf("per-share yield diverged: %s vs %s", lhs, rhs)
	}
}

func TestDistributeRequiresDeposits(t *testing.T) {
	acc := NewAccumulator()
	if _, err := acc.Distribute(big.NewInt(10), big.NewInt(0)); err != ErrNoDeposits {
		t.Fatalf("expected ErrNoDeposits, got %v", err)
	}
	if acc.AccumulatedPerShare().Sign() != 0 {
		t.Fatalf("index must not advance on failed distribution")
	}
}

func TestDistributeOverflowCeiling(t *testing.T) {
	acc := NewAccumulator()
	total := big.NewInt(1)

	max := MaxDistribution()
	if _, err := acc.Distribute(max, total); err != nil {
		t.Fatalf("ceiling amount must be accepted: %v", err)
	}

	over := new(big.Int).Add(MaxDistribution(), big.NewInt(1))
	if _, err := acc.Distribute(over, total); err != ErrAmountOverflow {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestDistributeDustSweep(t *testing.T) {
	acc := NewAccumulator()
	total := big.NewInt(3)

	dust, err := acc.Distribute(big.NewInt(100), total)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// 100 over 3 shares floors one base unit away.
	if dust.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected dust 1, got %s", dust)
	}
	if acc.TotalDistributed().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("total distributed mismatch: %s", acc.TotalDistributed())
	}
}

func TestClaimAdvancesBaseline(t *testing.T) {
	acc := NewAccumulator()
	deposit := big.NewInt(1_000_000)
	acc.InitializeAccount("carol", deposit)

	if _, err := acc.Distribute(big.NewInt(500_000), deposit); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	claimed, err := acc.Claim("carol", deposit)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("expected claim 500000, got %s", claimed)
	}
	if acc.PendingInterest("carol", deposit).Sign() != 0 {
		t.Fatalf("pending must be zero after claim")
	}
}

func TestClaimUnknownAccount(t *testing.T) {
	acc := NewAccumulator()
	if _, err := acc.Claim("ghost", big.NewInt(1)); err != ErrUnknownAccount {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestReinitializationBlocksRetroactiveInterest(t *testing.T) {
	acc := NewAccumulator()
	deposit := big.NewInt(1_000_000)
	acc.InitializeAccount("dave", deposit)

	// Dave withdraws to zero; the pool re-baselines him at zero.
	acc.UpdateBaseline("dave", big.NewInt(0))

	// Interest accrues to the remaining depositors while Dave holds nothing.
	if _, err := acc.Distribute(big.NewInt(2_000_000), big.NewInt(5_000_000)); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	// Redeposit must be re-initialised at the current index.
	acc.InitializeAccount("dave", deposit)
	if pending := acc.PendingInterest("dave", deposit); pending.Sign() != 0 {
		t.Fatalf("redeposit claimed retroactive interest: %s", pending)
	}
}

func TestIndexMonotonicAcrossDistributions(t *testing.T) {
	acc := NewAccumulator()
	total := big.NewInt(10_000_000)
	prev := acc.AccumulatedPerShare()
	for i := 0; i < 100; i++ {
		if _, err := acc.Distribute(big.NewInt(12_345), total); err != nil {
			t.Fatalf("distribute %d: %v", i, err)
		}
		next := acc.AccumulatedPerShare()
		if next.Cmp(prev) < 0 {
			t.Fatalf("index decreased at iteration %d", i)
		}
		prev = next
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	acc := NewAccumulator()
	deposit := big.NewInt(7_000_000)
	acc.InitializeAccount("erin", deposit)
	if _, err := acc.Distribute(big.NewInt(3_500_000), deposit); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	clone := NewAccumulator()
	clone.Restore(acc.AccumulatedPerShare(), acc.TotalDistributed(), acc.Baselines())

	if clone.AccumulatedPerShare().Cmp(acc.AccumulatedPerShare()) != 0 {
		t.Fatalf("per-share index mismatch after restore")
	}
	if clone.PendingInterest("erin", deposit).Cmp(acc.PendingInterest("erin", deposit)) != 0 {
		t.Fatalf("pending interest mismatch after restore")
	}
}
