package draw

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"prizepool/native/lottery"
	"prizepool/random"
)

// stubProvider hands out handles immediately and withholds seeds until
// released, mirroring the commit point of the real beacon provider.
type stubProvider struct {
	next     uint64
	seed     uint64
	released bool
	handles  map[string]bool
}

func newStubProvider(seed uint64) *stubProvider {
	return &stubProvider{seed: seed, handles: make(map[string]bool)}
}

func (p *stubProvider) Request() (random.Handle, error) {
	p.next++
	id := fmt.Sprintf("req-%d", p.next)
	p.handles[id] = true
	return random.Handle{ID: id, CommitPoint: p.next}, nil
}

func (p *stubProvider) Fulfill(h random.Handle) (uint64, error) {
	if !p.handles[h.ID] {
		return 0, random.ErrUnknownHandle
	}
	if !p.released {
		return 0, random.ErrStillPending
	}
	delete(p.handles, h.ID)
	return p.seed, nil
}

func testEngine(t *testing.T, interval time.Duration) (*Engine, *stubProvider, *time.Time) {
	t.Helper()
	provider := newStubProvider(42)
	engine, err := NewEngine(provider, &lottery.SingleWinner{}, interval)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	engine.SetClock(func() time.Time { return now })
	return engine, provider, &now
}

func testStakes() []lottery.Stake {
	return []lottery.Stake{
		{Receiver: "alice", Weight: big.NewInt(100)},
		{Receiver: "bob", Weight: big.NewInt(300)},
	}
}

func TestDrawLifecycle(t *testing.T) {
	engine, provider, _ := testEngine(t, time.Hour)

	receipt, err := engine.StartDraw(testStakes(), big.NewInt(1000))
	if err != nil {
		t.Fatalf("start draw: %v", err)
	}
	if receipt.ID == "" || receipt.Round != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if engine.State() != StatePendingRandomness {
		t.Fatalf("expected pending randomness, got %s", engine.State())
	}

	if _, _, err := engine.CompleteDraw(); !errors.Is(err, ErrRandomnessPending) {
		t.Fatalf("expected ErrRandomnessPending before release, got %v", err)
	}

	provider.released = true
	outcome, settled, err := engine.CompleteDraw()
	if err != nil {
		t.Fatalf("complete draw: %v", err)
	}
	if len(outcome.Winners) != 1 {
		t.Fatalf("expected one winner, got %d", len(outcome.Winners))
	}
	if outcome.TotalAwarded.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("awarded %s, want 1000", outcome.TotalAwarded)
	}
	if settled.ID != receipt.ID {
		t.Fatalf("settled receipt mismatch")
	}
	if engine.State() != StateIdle || engine.Round() != 2 {
		t.Fatalf("engine must return to idle on next round")
	}
	if engine.Receipt() != nil {
		t.Fatalf("receipt must be destroyed after completion")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	engine, _, _ := testEngine(t, time.Hour)
	if _, err := engine.StartDraw(testStakes(), big.NewInt(100)); err != nil {
		t.Fatalf("start draw: %v", err)
	}
	if _, err := engine.StartDraw(testStakes(), big.NewInt(100)); !errors.Is(err, ErrDrawPending) {
		t.Fatalf("expected ErrDrawPending, got %v", err)
	}
}

func TestCompleteWithoutStart(t *testing.T) {
	engine, _, _ := testEngine(t, time.Hour)
	if _, _, err := engine.CompleteDraw(); !errors.Is(err, ErrNoDrawPending) {
		t.Fatalf("expected ErrNoDrawPending, got %v", err)
	}
}

func TestIntervalEnforcement(t *testing.T) {
	engine, provider, now := testEngine(t, time.Hour)

	if _, err := engine.StartDraw(testStakes(), big.NewInt(100)); err != nil {
		t.Fatalf("first draw: %v", err)
	}
	provider.released = true
	if _, _, err := engine.CompleteDraw(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := engine.StartDraw(testStakes(), big.NewInt(100)); !errors.Is(err, ErrIntervalNotElapsed) {
		t.Fatalf("expected ErrIntervalNotElapsed, got %v", err)
	}
	*now = now.Add(time.Hour)
	if _, err := engine.StartDraw(testStakes(), big.NewInt(100)); err != nil {
		t.Fatalf("draw after interval: %v", err)
	}
}

func TestEmptyPrizePoolRejected(t *testing.T) {
	engine, _, _ := testEngine(t, time.Hour)
	if _, err := engine.StartDraw(testStakes(), big.NewInt(0)); !errors.Is(err, ErrEmptyPrizePool) {
		t.Fatalf("expected ErrEmptyPrizePool, got %v", err)
	}
	if _, err := engine.StartDraw(testStakes(), nil); !errors.Is(err, ErrEmptyPrizePool) {
		t.Fatalf("expected ErrEmptyPrizePool for nil prize, got %v", err)
	}
}

func TestBatchedSnapshot(t *testing.T) {
	engine, provider, _ := testEngine(t, time.Hour)

	if err := engine.BeginDraw(big.NewInt(500)); err != nil {
		t.Fatalf("begin draw: %v", err)
	}
	if engine.State() != StateSnapshotting {
		t.Fatalf("expected snapshotting, got %s", engine.State())
	}
	if err := engine.AppendStakes([]lottery.Stake{{Receiver: "alice", Weight: big.NewInt(10)}}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := engine.AppendStakes([]lottery.Stake{{Receiver: "bob", Weight: big.NewInt(20)}}); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	receipt, err := engine.RequestRandomness()
	if err != nil {
		t.Fatalf("request randomness: %v", err)
	}
	if len(receipt.Stakes) != 2 {
		t.Fatalf("expected 2 snapshotted stakes, got %d", len(receipt.Stakes))
	}

	provider.released = true
	outcome, _, err := engine.CompleteDraw()
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(outcome.Winners) != 1 {
		t.Fatalf("expected one winner")
	}
}

func TestAppendOutsideSnapshotPhase(t *testing.T) {
	engine, _, _ := testEngine(t, time.Hour)
	if err := engine.AppendStakes(testStakes()); !errors.Is(err, ErrNotSnapshotting) {
		t.Fatalf("expected ErrNotSnapshotting, got %v", err)
	}
	if _, err := engine.RequestRandomness(); !errors.Is(err, ErrNotSnapshotting) {
		t.Fatalf("expected ErrNotSnapshotting, got %v", err)
	}
}

// The snapshot taken at start time must settle unchanged even when stake
// weights move before completion.
func TestSnapshotIsolation(t *testing.T) {
	engine, provider, _ := testEngine(t, time.Hour)

	stakes := testStakes()
	receipt, err := engine.StartDraw(stakes, big.NewInt(1000))
	if err != nil {
		t.Fatalf("start draw: %v", err)
	}
	// Mutations to the caller's slice must not leak into the receipt.
	stakes[0].Weight.SetInt64(0)
	stakes[1].Receiver = "mallory"

	provider.released = true
	outcome, settled, err := engine.CompleteDraw()
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if settled.Stakes[0].Weight.Sign() == 0 || settled.Stakes[1].Receiver != "bob" {
		t.Fatalf("snapshot leaked caller mutations: %+v", settled.Stakes)
	}
	for _, winner := range outcome.Winners {
		if winner.Receiver == "mallory" {
			t.Fatalf("winner selected from mutated stake")
		}
	}
	_ = receipt
}

func TestRolloverOutcome(t *testing.T) {
	engine, provider, _ := testEngine(t, time.Hour)
	if _, err := engine.StartDraw(nil, big.NewInt(700)); err != nil {
		t.Fatalf("start draw with no stakes: %v", err)
	}
	provider.released = true
	outcome, _, err := engine.CompleteDraw()
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !outcome.RolledOver || outcome.TotalAwarded.Sign() != 0 {
		t.Fatalf("empty draw must roll the full prize, got %+v", outcome)
	}
	if engine.State() != StateIdle {
		t.Fatalf("rollover must still settle the draw")
	}
}

func TestStrategySwapBlockedMidDraw(t *testing.T) {
	engine, provider, _ := testEngine(t, time.Hour)
	if _, err := engine.StartDraw(testStakes(), big.NewInt(100)); err != nil {
		t.Fatalf("start draw: %v", err)
	}
	split := &lottery.Split{SplitsBps: []uint64{6000, 4000}}
	if err := engine.SetStrategy(split); !errors.Is(err, ErrDrawPending) {
		t.Fatalf("expected ErrDrawPending, got %v", err)
	}
	provider.released = true
	if _, _, err := engine.CompleteDraw(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := engine.SetStrategy(split); err != nil {
		t.Fatalf("strategy swap while idle: %v", err)
	}
}

func TestStatusReporting(t *testing.T) {
	engine, _, now := testEngine(t, time.Hour)

	status := engine.Status(big.NewInt(100))
	if !status.CanDrawNow || status.State != StateIdle {
		t.Fatalf("fresh engine must be drawable: %+v", status)
	}
	if engine.Status(big.NewInt(0)).CanDrawNow {
		t.Fatalf("empty prize must not report drawable")
	}

	if _, err := engine.StartDraw(testStakes(), big.NewInt(100)); err != nil {
		t.Fatalf("start draw: %v", err)
	}
	status = engine.Status(big.NewInt(100))
	if status.CanDrawNow || status.PendingReceipt == "" {
		t.Fatalf("pending draw must report its receipt: %+v", status)
	}
	if got := status.NextDrawAt; !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("next draw at %s, want %s", got, now.Add(time.Hour))
	}
}

func TestRestore(t *testing.T) {
	engine, provider, _ := testEngine(t, time.Hour)
	if _, err := engine.StartDraw(testStakes(), big.NewInt(900)); err != nil {
		t.Fatalf("start draw: %v", err)
	}
	saved := engine.Receipt()
	savedRound := engine.Round()
	savedLast := engine.LastDraw()

	restored, err := NewEngine(provider, &lottery.SingleWinner{}, time.Hour)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	restored.Restore(StatePendingRandomness, savedRound, savedLast, saved)

	provider.released = true
	outcome, settled, err := restored.CompleteDraw()
	if err != nil {
		t.Fatalf("complete restored draw: %v", err)
	}
	if settled.ID != saved.ID {
		t.Fatalf("restored receipt mismatch")
	}
	if outcome.TotalAwarded.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("awarded %s, want 900", outcome.TotalAwarded)
	}
}
