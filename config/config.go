package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the prized service configuration.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	LogFile       string `toml:"LogFile"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB"`
	LogMaxBackups int    `toml:"LogMaxBackups"`
	LogMaxAgeDays int    `toml:"LogMaxAgeDays"`

	// AdminRatePerSecond bounds mutating admin requests; bursts allow short
	// spikes above the sustained rate.
	AdminRatePerSecond float64 `toml:"AdminRatePerSecond"`
	AdminRateBurst     int     `toml:"AdminRateBurst"`

	Pool PoolConfig `toml:"Pool"`
}

// PoolConfig carries the bootstrap parameters for the default pool.
type PoolConfig struct {
	Asset               string `toml:"Asset"`
	Owner               string `toml:"Owner"`
	MinDeposit          string `toml:"MinDeposit"`
	DrawIntervalSeconds uint64 `toml:"DrawIntervalSeconds"`
	SavingsBps          uint64 `toml:"SavingsBps"`
	LotteryBps          uint64 `toml:"LotteryBps"`
	TreasuryBps         uint64 `toml:"TreasuryBps"`
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:      ":8645",
		DataDir:            "./prized-data",
		Environment:        "local",
		AdminRatePerSecond: 5,
		AdminRateBurst:     10,
		Pool: PoolConfig{
			Asset:               "SAVE",
			Owner:               "operator",
			MinDeposit:          "0",
			DrawIntervalSeconds: 86400,
			SavingsBps:          7000,
			LotteryBps:          2500,
			TreasuryBps:         500,
		},
	}
}

// Load reads the configuration from path, writing a commented default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is usable before the service starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if c.AdminRatePerSecond <= 0 {
		return fmt.Errorf("config: AdminRatePerSecond must be positive")
	}
	if c.AdminRateBurst <= 0 {
		return fmt.Errorf("config: AdminRateBurst must be positive")
	}
	if strings.TrimSpace(c.Pool.Asset) == "" {
		return fmt.Errorf("config: Pool.Asset required")
	}
	if _, err := c.MinDepositAmount(); err != nil {
		return err
	}
	if c.Pool.SavingsBps+c.Pool.LotteryBps+c.Pool.TreasuryBps != 10000 {
		return fmt.Errorf("config: Pool splits must sum to 10000 bps")
	}
	return nil
}

// MinDepositAmount parses the configured minimum deposit in base units.
func (c *Config) MinDepositAmount() (*big.Int, error) {
	raw := strings.TrimSpace(c.Pool.MinDeposit)
	if raw == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("config: Pool.MinDeposit %q is not a non-negative integer", raw)
	}
	return amount, nil
}

// DrawInterval returns the configured draw interval as a duration.
func (c *Config) DrawInterval() time.Duration {
	return time.Duration(c.Pool.DrawIntervalSeconds) * time.Second
}
