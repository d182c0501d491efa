package pool

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"prizepool/native/draw"
	"prizepool/native/emergency"
	"prizepool/native/lottery"
	"prizepool/native/treasury"
	"prizepool/random"
	"prizepool/storage"
	"prizepool/yield"
)

// Persistence snapshots the full pool state to a key-value store via RLP.
// RLP cannot encode maps or signed integers, so maps flatten into slices
// sorted by key and timestamps store as unix seconds. The winner strategy is
// code, not data; the loader receives it from configuration.

func poolKey(id uint64) []byte {
	return []byte(fmt.Sprintf("pool:%d", id))
}

type accountRecord struct {
	Receiver           string
	Deposit            *big.Int
	Baseline           *big.Int
	TotalEarnedSavings *big.Int
	TotalEarnedPrizes  *big.Int
	BonusWeight        *big.Int
	PendingAuxPrizes   []uint64
}

type stakeRecord struct {
	Receiver string
	Weight   *big.Int
}

type receiptRecord struct {
	ID          string
	Round       uint64
	PrizeAmount *big.Int
	Stakes      []stakeRecord
	HandleID    string
	CommitPoint uint64
	StartedAt   uint64
}

type withdrawalEntry struct {
	ID        string
	Timestamp uint64
	Actor     string
	Purpose   string
	Amount    *big.Int
}

type fundingEntry struct {
	Destination string
	HasCap      bool
	Cap         *big.Int
	Total       *big.Int
}

type roleEntry struct {
	Actor string
	Roles uint64
}

type poolSnapshot struct {
	ID                  uint64
	Asset               string
	MinDeposit          *big.Int
	DrawIntervalSeconds uint64
	SavingsBps          uint64
	LotteryBps          uint64
	TreasuryBps         uint64

	PerShare         *big.Int
	TotalDistributed *big.Int
	TotalDeposited   *big.Int
	TotalStaked      *big.Int
	Buffer           *big.Int
	PrizePool        *big.Int
	Accounts         []accountRecord

	TreasuryBalance   *big.Int
	TreasuryCollected *big.Int
	TreasuryForwarded *big.Int
	TreasuryHistory   []withdrawalEntry
	Funding           []fundingEntry

	Roles []roleEntry

	DrawState  uint64
	Round      uint64
	LastDraw   uint64
	HasReceipt bool
	Receipt    receiptRecord

	SnapshotOpen  bool
	SnapshotQueue []string

	EmergencyState    uint64
	EmergencyReason   string
	EmergencyEntered  uint64
	EmergencyFailures uint64
	EmergencyLastBps  uint64
}

// Save writes the full pool snapshot to the store.
func (e *Engine) Save(db storage.Database) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := poolSnapshot{
		ID:                  e.id,
		Asset:               e.cfg.Asset,
		MinDeposit:          copyOrZero(e.cfg.MinDeposit),
		DrawIntervalSeconds: uint64(e.cfg.DrawInterval / time.Second),
		SavingsBps:          e.cfg.SavingsBps,
		LotteryBps:          e.cfg.LotteryBps,
		TreasuryBps:         e.cfg.TreasuryBps,
		PerShare:            e.accum.AccumulatedPerShare(),
		TotalDistributed:    e.accum.TotalDistributed(),
		TotalDeposited:      new(big.Int).Set(e.totalDeposited),
		TotalStaked:         new(big.Int).Set(e.totalStaked),
		Buffer:              new(big.Int).Set(e.buffer),
		PrizePool:           new(big.Int).Set(e.prizePool),
		TreasuryBalance:     e.treasury.Balance(),
		TreasuryCollected:   e.treasury.TotalCollected(),
		TreasuryForwarded:   e.treasury.TotalForwarded(),
		Round:               e.draws.Round(),
		DrawState:           uint64(e.draws.State()),
	}
	for _, receiver := range e.sortedReceivers() {
		acct := e.accounts[receiver]
		snap.Accounts = append(snap.Accounts, accountRecord{
			Receiver:           receiver,
			Deposit:            new(big.Int).Set(acct.Deposit),
			Baseline:           e.accum.Baseline(receiver),
			TotalEarnedSavings: new(big.Int).Set(acct.TotalEarnedSavings),
			TotalEarnedPrizes:  new(big.Int).Set(acct.TotalEarnedPrizes),
			BonusWeight:        new(big.Int).Set(acct.BonusWeight),
			PendingAuxPrizes:   append([]uint64(nil), acct.PendingAuxPrizes...),
		})
	}
	for _, record := range e.treasury.History() {
		snap.TreasuryHistory = append(snap.TreasuryHistory, withdrawalEntry{
			ID:        record.ID,
			Timestamp: uint64(record.Timestamp.Unix()),
			Actor:     record.Actor,
			Purpose:   record.Purpose,
			Amount:    record.Amount,
		})
	}
	snap.Funding = flattenFunding(e.funding)
	snap.Roles = flattenRoles(e.roles)
	if !e.draws.LastDraw().IsZero() {
		snap.LastDraw = uint64(e.draws.LastDraw().Unix())
	}
	if receipt := e.draws.Receipt(); receipt != nil {
		snap.HasReceipt = true
		snap.Receipt = receiptRecord{
			ID:          receipt.ID,
			Round:       receipt.Round,
			PrizeAmount: receipt.PrizeAmount,
			HandleID:    receipt.Handle.ID,
			CommitPoint: receipt.Handle.CommitPoint,
			StartedAt:   uint64(receipt.StartedAt.Unix()),
		}
		for _, stake := range receipt.Stakes {
			snap.Receipt.Stakes = append(snap.Receipt.Stakes, stakeRecord{Receiver: stake.Receiver, Weight: stake.Weight})
		}
	}
	if e.snapshotQueue != nil {
		snap.SnapshotOpen = true
		snap.SnapshotQueue = append([]string(nil), e.snapshotQueue...)
	}
	info := e.breaker.Snapshot()
	snap.EmergencyState = uint64(info.State)
	snap.EmergencyReason = info.Reason
	if !info.EnteredAt.IsZero() {
		snap.EmergencyEntered = uint64(info.EnteredAt.Unix())
	}
	snap.EmergencyFailures = uint64(info.ConsecutiveFailures)
	snap.EmergencyLastBps = info.LastHealthBps

	encoded, err := rlp.EncodeToBytes(&snap)
	if err != nil {
		return fmt.Errorf("pool: encode snapshot: %w", err)
	}
	return db.Put(poolKey(e.id), encoded)
}

// Exists reports whether a snapshot for the pool id is present in the store.
func Exists(db storage.Database, id uint64) (bool, error) {
	return db.Has(poolKey(id))
}

// Load rebuilds a pool from its stored snapshot. The winner strategy and
// emergency policy come from configuration since they are code, not state.
func Load(db storage.Database, id uint64, strategy lottery.Strategy, emergencyCfg emergency.Config, connector yield.Connector, provider random.Provider) (*Engine, error) {
	encoded, err := db.Get(poolKey(id))
	if err != nil {
		return nil, fmt.Errorf("pool: load snapshot: %w", err)
	}
	var snap poolSnapshot
	if err := rlp.DecodeBytes(encoded, &snap); err != nil {
		return nil, fmt.Errorf("pool: decode snapshot: %w", err)
	}

	cfg := Config{
		Asset:        snap.Asset,
		MinDeposit:   snap.MinDeposit,
		DrawInterval: time.Duration(snap.DrawIntervalSeconds) * time.Second,
		SavingsBps:   snap.SavingsBps,
		LotteryBps:   snap.LotteryBps,
		TreasuryBps:  snap.TreasuryBps,
		Strategy:     strategy,
		Emergency:    emergencyCfg,
	}
	engine, err := NewEngine(snap.ID, cfg, connector, provider, "")
	if err != nil {
		return nil, err
	}

	baselines := make(map[string]*big.Int, len(snap.Accounts))
	for _, record := range snap.Accounts {
		engine.accounts[record.Receiver] = &Account{
			Deposit:            copyOrZero(record.Deposit),
			TotalEarnedSavings: copyOrZero(record.TotalEarnedSavings),
			TotalEarnedPrizes:  copyOrZero(record.TotalEarnedPrizes),
			BonusWeight:        copyOrZero(record.BonusWeight),
			PendingAuxPrizes:   append([]uint64(nil), record.PendingAuxPrizes...),
		}
		baselines[record.Receiver] = copyOrZero(record.Baseline)
	}
	engine.accum.Restore(snap.PerShare, snap.TotalDistributed, baselines)
	engine.totalDeposited = copyOrZero(snap.TotalDeposited)
	engine.totalStaked = copyOrZero(snap.TotalStaked)
	engine.buffer = copyOrZero(snap.Buffer)
	engine.prizePool = copyOrZero(snap.PrizePool)

	history := make([]treasury.WithdrawalRecord, 0, len(snap.TreasuryHistory))
	for _, entry := range snap.TreasuryHistory {
		history = append(history, treasury.WithdrawalRecord{
			ID:        entry.ID,
			Timestamp: time.Unix(int64(entry.Timestamp), 0).UTC(),
			Actor:     entry.Actor,
			Purpose:   entry.Purpose,
			Amount:    copyOrZero(entry.Amount),
		})
	}
	engine.treasury.Restore(snap.TreasuryBalance, snap.TreasuryCollected, snap.TreasuryForwarded, history)
	engine.funding.Restore(unflattenFunding(snap.Funding))
	for _, entry := range snap.Roles {
		engine.roles[entry.Actor] = Role(entry.Roles)
	}

	var lastDraw time.Time
	if snap.LastDraw > 0 {
		lastDraw = time.Unix(int64(snap.LastDraw), 0).UTC()
	}
	var receipt *draw.Receipt
	if snap.HasReceipt {
		receipt = &draw.Receipt{
			ID:          snap.Receipt.ID,
			Round:       snap.Receipt.Round,
			PrizeAmount: copyOrZero(snap.Receipt.PrizeAmount),
			Handle:      random.Handle{ID: snap.Receipt.HandleID, CommitPoint: snap.Receipt.CommitPoint},
			StartedAt:   time.Unix(int64(snap.Receipt.StartedAt), 0).UTC(),
		}
		for _, stake := range snap.Receipt.Stakes {
			receipt.Stakes = append(receipt.Stakes, lottery.Stake{Receiver: stake.Receiver, Weight: copyOrZero(stake.Weight)})
		}
	}
	engine.draws.Restore(draw.State(snap.DrawState), snap.Round, lastDraw, receipt)
	if snap.SnapshotOpen {
		// An empty queue must restore non-nil so FinishDrawSnapshot can seal
		// a fully drained batch.
		engine.snapshotQueue = append([]string{}, snap.SnapshotQueue...)
	}

	var entered time.Time
	if snap.EmergencyEntered > 0 {
		entered = time.Unix(int64(snap.EmergencyEntered), 0).UTC()
	}
	engine.breaker.Restore(emergency.Info{
		State:               emergency.State(snap.EmergencyState),
		Reason:              snap.EmergencyReason,
		EnteredAt:           entered,
		ConsecutiveFailures: uint32(snap.EmergencyFailures),
		LastHealthBps:       snap.EmergencyLastBps,
	})
	return engine, nil
}

func flattenFunding(policy *treasury.FundingPolicy) []fundingEntry {
	caps := policy.Caps()
	totals := policy.Totals()
	seen := make(map[treasury.Destination]bool, len(caps)+len(totals))
	dests := make([]string, 0, len(caps)+len(totals))
	for dest := range caps {
		if !seen[dest] {
			seen[dest] = true
			dests = append(dests, string(dest))
		}
	}
	for dest := range totals {
		if !seen[dest] {
			seen[dest] = true
			dests = append(dests, string(dest))
		}
	}
	sort.Strings(dests)
	entries := make([]fundingEntry, 0, len(dests))
	for _, name := range dests {
		dest := treasury.Destination(name)
		entry := fundingEntry{Destination: name, Cap: big.NewInt(0), Total: big.NewInt(0)}
		if limit, ok := caps[dest]; ok {
			entry.HasCap = true
			entry.Cap = limit
		}
		if total, ok := totals[dest]; ok {
			entry.Total = total
		}
		entries = append(entries, entry)
	}
	return entries
}

func unflattenFunding(entries []fundingEntry) (map[treasury.Destination]*big.Int, map[treasury.Destination]*big.Int) {
	caps := make(map[treasury.Destination]*big.Int)
	totals := make(map[treasury.Destination]*big.Int)
	for _, entry := range entries {
		dest := treasury.Destination(entry.Destination)
		if entry.HasCap {
			caps[dest] = copyOrZero(entry.Cap)
		}
		if entry.Total != nil && entry.Total.Sign() > 0 {
			totals[dest] = copyOrZero(entry.Total)
		}
	}
	return caps, totals
}

func flattenRoles(roles map[string]Role) []roleEntry {
	actors := make([]string, 0, len(roles))
	for actor := range roles {
		actors = append(actors, actor)
	}
	sort.Strings(actors)
	entries := make([]roleEntry, 0, len(actors))
	for _, actor := range actors {
		entries = append(entries, roleEntry{Actor: actor, Roles: uint64(roles[actor])})
	}
	return entries
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
