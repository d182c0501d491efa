package pool

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"prizepool/native/emergency"
	"prizepool/native/lottery"
)

// BpsDenominator is the fixed denominator for distribution splits.
const BpsDenominator = 10000

var (
	ErrAssetMismatch      = errors.New("pool: asset mismatch")
	ErrBelowMinimum       = errors.New("pool: deposit below configured minimum")
	ErrInvalidAmount      = errors.New("pool: amount must be positive")
	ErrInsufficientFunds  = errors.New("pool: insufficient account balance")
	ErrUnknownAccount     = errors.New("pool: unknown account")
	ErrConnectorShortfall = errors.New("pool: yield connector could not cover withdrawal")
	ErrNoPendingClaim     = errors.New("pool: no pending auxiliary prize at index")
	ErrPermissionDenied   = errors.New("pool: actor lacks required permission")
	ErrInvalidConfig      = errors.New("pool: invalid configuration")
	ErrSnapshotInProgress = errors.New("pool: stake snapshot already in progress")
	ErrNoSnapshot         = errors.New("pool: no stake snapshot in progress")
)

// Role is a set of independently grantable admin permissions.
type Role uint8

const (
	// RoleConfigure covers strategy, interval, and split updates.
	RoleConfigure Role = 1 << iota
	// RoleEmergency covers pause/resume and emergency trigger/resolve.
	RoleEmergency
	// RoleFunding covers direct funding of pool destinations.
	RoleFunding
	// RoleTreasury covers treasury withdrawals and recipient changes.
	RoleTreasury
	// RoleBonus covers bonus lottery-weight management.
	RoleBonus

	// RoleAll grants every permission.
	RoleAll = RoleConfigure | RoleEmergency | RoleFunding | RoleTreasury | RoleBonus
)

// Has reports whether the role set includes every permission in want.
func (r Role) Has(want Role) bool { return r&want == want }

// Config carries the per-pool policy parameters.
type Config struct {
	Asset        string
	MinDeposit   *big.Int
	DrawInterval time.Duration
	SavingsBps   uint64
	LotteryBps   uint64
	TreasuryBps  uint64
	Strategy     lottery.Strategy
	Emergency    emergency.Config
}

// DefaultConfig returns the standard 70/25/5 split with a daily single-winner
// draw and no deposit minimum.
func DefaultConfig(asset string) Config {
	return Config{
		Asset:        asset,
		MinDeposit:   big.NewInt(0),
		DrawInterval: 24 * time.Hour,
		SavingsBps:   7000,
		LotteryBps:   2500,
		TreasuryBps:  500,
		Strategy:     SingleWinnerStrategy(),
		Emergency:    emergency.DefaultConfig(),
	}
}

// SingleWinnerStrategy returns the default winner-selection strategy.
func SingleWinnerStrategy() lottery.Strategy { return &lottery.SingleWinner{} }

// Validate ensures the configuration is coherent.
func (c Config) Validate() error {
	if c.Asset == "" {
		return fmt.Errorf("%w: asset symbol required", ErrInvalidConfig)
	}
	if c.MinDeposit != nil && c.MinDeposit.Sign() < 0 {
		return fmt.Errorf("%w: minimum deposit cannot be negative", ErrInvalidConfig)
	}
	if c.DrawInterval < 0 {
		return fmt.Errorf("%w: draw interval cannot be negative", ErrInvalidConfig)
	}
	if c.SavingsBps+c.LotteryBps+c.TreasuryBps != BpsDenominator {
		return fmt.Errorf("%w: distribution splits must sum to %d bps", ErrInvalidConfig, BpsDenominator)
	}
	if c.Strategy == nil {
		return fmt.Errorf("%w: winner strategy required", ErrInvalidConfig)
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	return c.Emergency.Validate()
}

// Account is the per-receiver ledger record. It is created on first deposit
// and survives the balance reaching zero; historical counters only grow.
type Account struct {
	Deposit            *big.Int
	TotalEarnedSavings *big.Int
	TotalEarnedPrizes  *big.Int
	BonusWeight        *big.Int
	PendingAuxPrizes   []uint64
}

func newAccount() *Account {
	return &Account{
		Deposit:            big.NewInt(0),
		TotalEarnedSavings: big.NewInt(0),
		TotalEarnedPrizes:  big.NewInt(0),
		BonusWeight:        big.NewInt(0),
	}
}

func (a *Account) clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{
		Deposit:            new(big.Int).Set(a.Deposit),
		TotalEarnedSavings: new(big.Int).Set(a.TotalEarnedSavings),
		TotalEarnedPrizes:  new(big.Int).Set(a.TotalEarnedPrizes),
		BonusWeight:        new(big.Int).Set(a.BonusWeight),
		PendingAuxPrizes:   append([]uint64(nil), a.PendingAuxPrizes...),
	}
}

// Balance is the per-account view returned by balance queries.
type Balance struct {
	Deposit            *big.Int
	PendingInterest    *big.Int
	BonusWeight        *big.Int
	TotalEarnedSavings *big.Int
	TotalEarnedPrizes  *big.Int
	PendingAuxPrizes   []uint64
}

// Stats is the aggregate pool view returned by stats queries.
type Stats struct {
	PoolID           uint64
	Asset            string
	TotalDeposited   *big.Int
	TotalStaked      *big.Int
	Buffer           *big.Int
	PrizePool        *big.Int
	TreasuryBalance  *big.Int
	TotalDistributed *big.Int
	Accounts         int
	Round            uint64
	EmergencyState   string
}

// RewardsReport summarises one ProcessRewards round.
type RewardsReport struct {
	Total    *big.Int
	Savings  *big.Int
	Lottery  *big.Int
	Treasury *big.Int
	Dust     *big.Int
	Skipped  bool
}
