package treasury

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestFundingPolicyCaps(t *testing.T) {
	policy := NewFundingPolicy()
	if err := policy.SetCap(DestinationLottery, big.NewInt(1000)); err != nil {
		t.Fatalf("set cap: %v", err)
	}

	if err := policy.RecordDirectFunding(DestinationLottery, big.NewInt(600)); err != nil {
		t.Fatalf("first funding: %v", err)
	}
	if err := policy.RecordDirectFunding(DestinationLottery, big.NewInt(500)); !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected cap rejection, got %v", err)
	}
	// Rejected funding must not move the total.
	if policy.FundedTotal(DestinationLottery).Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("total moved on rejected funding: %s", policy.FundedTotal(DestinationLottery))
	}
	if err := policy.RecordDirectFunding(DestinationLottery, big.NewInt(400)); err != nil {
		t.Fatalf("funding to exact cap: %v", err)
	}
}

func TestFundingPolicyUncappedDestination(t *testing.T) {
	policy := NewFundingPolicy()
	if err := policy.RecordDirectFunding(DestinationSavings, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("uncapped funding: %v", err)
	}
	if err := policy.RecordDirectFunding("prizes", big.NewInt(1)); err != ErrUnknownDestination {
		t.Fatalf("expected ErrUnknownDestination, got %v", err)
	}
}

func TestLedgerWithdrawValidation(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.Credit(big.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if _, err := ledger.Withdraw(big.NewInt(100), "", "ops"); err != ErrEmptyPurpose {
		t.Fatalf("expected ErrEmptyPurpose, got %v", err)
	}
	if _, err := ledger.Withdraw(big.NewInt(600), "audit fees", "ops"); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	record, err := ledger.Withdraw(big.NewInt(200), "audit fees", "ops")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if record.ID == "" || record.Purpose != "audit fees" || record.Actor != "ops" {
		t.Fatalf("incomplete record: %+v", record)
	}
	if ledger.Balance().Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("balance after withdraw: %s", ledger.Balance())
	}
}

func TestLedgerHistoryIsImmutable(t *testing.T) {
	ledger := NewLedger()
	now := time.Unix(1_700_000_000, 0)
	ledger.SetClock(func() time.Time { return now })
	if err := ledger.Credit(big.NewInt(1000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := ledger.Withdraw(big.NewInt(250), "grants", "dao"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	history := ledger.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 record, got %d", len(history))
	}
	// Mutating the returned copy must not affect the ledger.
	history[0].Amount.SetInt64(0)
	history[0].Purpose = "tampered"
	fresh := ledger.History()
	if fresh[0].Amount.Cmp(big.NewInt(250)) != 0 || fresh[0].Purpose != "grants" {
		t.Fatalf("history was mutated through the copy")
	}
}

type captureRecipient struct {
	received *big.Int
	fail     bool
}

func (r *captureRecipient) Receive(amount *big.Int) error {
	if r.fail {
		return errors.New("sink offline")
	}
	if r.received == nil {
		r.received = big.NewInt(0)
	}
	r.received.Add(r.received, amount)
	return nil
}

func TestLedgerForwarding(t *testing.T) {
	ledger := NewLedger()
	sink := &captureRecipient{}
	ledger.SetRecipient(sink)

	if err := ledger.Credit(big.NewInt(400)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if sink.received == nil || sink.received.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("recipient did not receive forwarded funds")
	}
	if ledger.Balance().Sign() != 0 {
		t.Fatalf("forwarded funds must not accumulate locally")
	}
	if ledger.TotalForwarded().Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("total forwarded mismatch: %s", ledger.TotalForwarded())
	}

	// A failing sink retains the funds locally instead of losing them.
	sink.fail = true
	if err := ledger.Credit(big.NewInt(100)); err != nil {
		t.Fatalf("credit with failing sink: %v", err)
	}
	if ledger.Balance().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("failed forward must retain balance, got %s", ledger.Balance())
	}

	ledger.SetRecipient(nil)
	if ledger.HasRecipient() {
		t.Fatalf("recipient must be cleared")
	}
}
