package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prized.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8645" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	// The written default must round-trip.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Pool.Asset != cfg.Pool.Asset {
		t.Fatalf("round-trip mismatch: %q != %q", again.Pool.Asset, cfg.Pool.Asset)
	}
}

func TestLoadRejectsBadSplits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prized.toml")
	body := `
ListenAddress = ":8645"
DataDir = "./data"
AdminRatePerSecond = 5.0
AdminRateBurst = 10

[Pool]
Asset = "SAVE"
SavingsBps = 7000
LotteryBps = 2500
TreasuryBps = 9000
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation failure for bad splits")
	}
}

func TestMinDepositAmount(t *testing.T) {
	cfg := defaultConfig()
	cfg.Pool.MinDeposit = "2500000000"
	amount, err := cfg.MinDepositAmount()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if amount.Cmp(big.NewInt(2_500_000_000)) != 0 {
		t.Fatalf("unexpected amount %s", amount)
	}

	cfg.Pool.MinDeposit = "-1"
	if _, err := cfg.MinDepositAmount(); err == nil {
		t.Fatalf("expected rejection of negative minimum")
	}
}
