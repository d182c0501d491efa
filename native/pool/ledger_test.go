package pool

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prizepool/native/draw"
	"prizepool/random"
	"prizepool/storage"
	"prizepool/yield"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tp := newTestPool(t, nil)
	tp.mustDeposit(t, "alice", 4000)
	tp.mustDeposit(t, "bob", 1000)
	tp.vault.InjectYield(big.NewInt(1000))
	_, err := tp.engine.ProcessRewards()
	require.NoError(t, err)
	_, err = tp.engine.WithdrawTreasury(owner, big.NewInt(20), "audit")
	require.NoError(t, err)
	require.NoError(t, tp.engine.SetBonusWeight(owner, "bob", big.NewInt(50)))
	require.NoError(t, tp.engine.Grant(owner, "keeper", RoleEmergency))

	db := storage.NewMemDB()
	stored, err := Exists(db, 1)
	require.NoError(t, err)
	require.False(t, stored)
	require.NoError(t, tp.engine.Save(db))
	stored, err = Exists(db, 1)
	require.NoError(t, err)
	require.True(t, stored)

	restored, err := Load(db, 1, tp.engine.cfg.Strategy, tp.engine.cfg.Emergency, tp.vault, random.NewBeaconProvider(tp.chain))
	require.NoError(t, err)

	want := tp.engine.Stats()
	got := restored.Stats()
	require.Equal(t, want.Asset, got.Asset)
	require.Zero(t, want.TotalDeposited.Cmp(got.TotalDeposited))
	require.Zero(t, want.TotalStaked.Cmp(got.TotalStaked))
	require.Zero(t, want.PrizePool.Cmp(got.PrizePool))
	require.Zero(t, want.TreasuryBalance.Cmp(got.TreasuryBalance))
	require.Equal(t, want.Accounts, got.Accounts)

	for _, receiver := range []string{"alice", "bob"} {
		before, err := tp.engine.AccountBalance(receiver)
		require.NoError(t, err)
		after, err := restored.AccountBalance(receiver)
		require.NoError(t, err)
		require.Zero(t, before.Deposit.Cmp(after.Deposit))
		require.Zero(t, before.PendingInterest.Cmp(after.PendingInterest), "pending interest for %s must survive restart", receiver)
		require.Zero(t, before.BonusWeight.Cmp(after.BonusWeight))
	}

	history := restored.TreasuryHistory()
	require.Len(t, history, 1)
	require.Equal(t, "audit", history[0].Purpose)

	require.True(t, restored.Roles("keeper").Has(RoleEmergency))
	require.True(t, restored.Roles(owner).Has(RoleAll))
}

// A draw that was pending at shutdown must survive a restart and settle
// against the same randomness commitment.
func TestSaveLoadPendingDraw(t *testing.T) {
	tp := newTestPool(t, nil)
	tp.mustDeposit(t, "alice", 4000)
	tp.mustDeposit(t, "bob", 1000)
	tp.vault.InjectYield(big.NewInt(1000))
	_, err := tp.engine.ProcessRewards()
	require.NoError(t, err)

	provider := random.NewBeaconProvider(tp.chain)
	engine, err := NewEngine(2, tp.engine.cfg, tp.vault, provider, owner)
	require.NoError(t, err)
	// Mirror the funded state onto the persisted pool.
	engine.accounts = tp.engine.accounts
	engine.accum = tp.engine.accum
	engine.totalDeposited = tp.engine.totalDeposited
	engine.totalStaked = tp.engine.totalStaked
	engine.prizePool = tp.engine.prizePool

	receipt, err := engine.StartDraw()
	require.NoError(t, err)

	db := storage.NewMemDB()
	require.NoError(t, engine.Save(db))

	// A restart constructs a fresh provider; the persisted handle must still
	// resolve against the same chain.
	restored, err := Load(db, 2, engine.cfg.Strategy, engine.cfg.Emergency, tp.vault, random.NewBeaconProvider(tp.chain))
	require.NoError(t, err)
	status := restored.DrawStatus()
	require.Equal(t, draw.StatePendingRandomness, status.State)
	require.Equal(t, receipt.ID, status.PendingReceipt)

	tp.chain.height++
	outcome, err := restored.CompleteDraw()
	require.NoError(t, err)
	require.Len(t, outcome.Winners, 1)
	require.Zero(t, outcome.TotalAwarded.Cmp(receipt.PrizeAmount))
}

// A pool saved midway through a batched stake snapshot must restore with the
// remaining queue intact and let the draw proceed to completion.
func TestSaveLoadMidSnapshotBatch(t *testing.T) {
	tp := newTestPool(t, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, tp.engine.Deposit(receiverName(i), big.NewInt(100)))
	}
	tp.vault.InjectYield(big.NewInt(100))
	_, err := tp.engine.ProcessRewards()
	require.NoError(t, err)

	require.NoError(t, tp.engine.BeginDrawSnapshot())
	done, err := tp.engine.SnapshotBatch(2)
	require.NoError(t, err)
	require.False(t, done)

	db := storage.NewMemDB()
	require.NoError(t, tp.engine.Save(db))

	restored, err := Load(db, 1, tp.engine.cfg.Strategy, tp.engine.cfg.Emergency, tp.vault, random.NewBeaconProvider(tp.chain))
	require.NoError(t, err)
	restored.SetClock(func() time.Time { return tp.now })
	require.Equal(t, draw.StateSnapshotting, restored.DrawStatus().State)

	for {
		done, err := restored.SnapshotBatch(2)
		require.NoError(t, err)
		if done {
			break
		}
	}
	receipt, err := restored.FinishDrawSnapshot()
	require.NoError(t, err)
	require.Len(t, receipt.Stakes, 5)

	tp.chain.height++
	outcome, err := restored.CompleteDraw()
	require.NoError(t, err)
	require.Len(t, outcome.Winners, 1)
}

func TestLoadMissingPool(t *testing.T) {
	db := storage.NewMemDB()
	stored, err := Exists(db, 99)
	require.NoError(t, err)
	require.False(t, stored)
	_, err = Load(db, 99, SingleWinnerStrategy(), DefaultConfig("SAVE").Emergency, yield.NewStaticVault(), random.NewBeaconProvider(&fakeChain{height: 1}))
	require.Error(t, err)
}

func TestSnapshotPreservesLastDraw(t *testing.T) {
	tp := newTestPool(t, func(cfg *Config) { cfg.DrawInterval = time.Hour })
	tp.mustDeposit(t, "alice", 1000)
	tp.vault.InjectYield(big.NewInt(1000))
	_, err := tp.engine.ProcessRewards()
	require.NoError(t, err)

	_, err = tp.engine.StartDraw()
	require.NoError(t, err)
	tp.chain.height++
	_, err = tp.engine.CompleteDraw()
	require.NoError(t, err)

	db := storage.NewMemDB()
	require.NoError(t, tp.engine.Save(db))
	restored, err := Load(db, 1, tp.engine.cfg.Strategy, tp.engine.cfg.Emergency, tp.vault, random.NewBeaconProvider(tp.chain))
	require.NoError(t, err)
	restored.SetClock(func() time.Time { return tp.now })

	// The interval gate must hold across the restart.
	_, err = restored.StartDraw()
	require.ErrorIs(t, err, draw.ErrIntervalNotElapsed)
}
