package main

import (
	"context"
	crand "crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"prizepool/config"
	"prizepool/core/events"
	"prizepool/native/pool"
	"prizepool/observability/logging"
	"prizepool/observability/metrics"
	"prizepool/random"
	"prizepool/storage"
	"prizepool/yield"
)

const defaultPoolID = 1

func main() {
	configFile := flag.String("config", "./prized.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prized: %v\n", err)
		os.Exit(1)
	}
	logger := logging.SetupWithOptions("prized", cfg.Environment, logging.Options{
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "err", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "pools"))
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	vault := yield.NewStaticVault()
	beacon := newLocalBeacon()
	provider := random.NewBeaconProvider(beacon)

	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		logger.Error("pool config", "err", err)
		os.Exit(1)
	}

	registry := pool.NewRegistry()
	var engine *pool.Engine
	stored, err := pool.Exists(db, defaultPoolID)
	if err != nil {
		logger.Error("check pool storage", "err", err)
		os.Exit(1)
	}
	if stored {
		engine, err = pool.Load(db, defaultPoolID, poolCfg.Strategy, poolCfg.Emergency, vault, provider)
		if err != nil {
			logger.Error("restore pool", "err", err)
			os.Exit(1)
		}
		if err := registry.Register(engine); err != nil {
			logger.Error("register pool", "err", err)
			os.Exit(1)
		}
		logger.Info("restored pool from storage", "pool", engine.ID())
	} else {
		engine, err = registry.Create(poolCfg, vault, provider, cfg.Pool.Owner)
		if err != nil {
			logger.Error("create pool", "err", err)
			os.Exit(1)
		}
		logger.Info("created pool", "pool", engine.ID(), "asset", engine.Asset())
	}
	engine.SetEmitter(&logEmitter{log: logger})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           newRouter(registry, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go beacon.run(ctx, 2*time.Second)
	go maintenanceLoop(ctx, logger, registry, db)

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	persistAll(logger, registry, db)
}

func buildPoolConfig(cfg *config.Config) (pool.Config, error) {
	poolCfg := pool.DefaultConfig(cfg.Pool.Asset)
	minDeposit, err := cfg.MinDepositAmount()
	if err != nil {
		return pool.Config{}, err
	}
	poolCfg.MinDeposit = minDeposit
	poolCfg.DrawInterval = cfg.DrawInterval()
	poolCfg.SavingsBps = cfg.Pool.SavingsBps
	poolCfg.LotteryBps = cfg.Pool.LotteryBps
	poolCfg.TreasuryBps = cfg.Pool.TreasuryBps
	return poolCfg, nil
}

// maintenanceLoop periodically re-evaluates connector health, refreshes the
// exported gauges, and persists every pool.
func maintenanceLoop(ctx context.Context, logger *slog.Logger, registry *pool.Registry, db storage.Database) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range registry.IDs() {
				engine, err := registry.Get(id)
				if err != nil {
					continue
				}
				engine.EvaluateHealth()
				stats := engine.Stats()
				gauges := metrics.Pool()
				gauges.SetPrizeBalance(id, bigFloat(stats.PrizePool))
				gauges.SetTotalDeposited(id, bigFloat(stats.TotalDeposited))
				gauges.SetEmergencyState(id, float64(engine.EmergencyInfo().State))
				if err := engine.Save(db); err != nil {
					logger.Error("persist pool", "pool", id, "err", err)
				}
			}
		}
	}
}

func persistAll(logger *slog.Logger, registry *pool.Registry, db storage.Database) {
	for _, id := range registry.IDs() {
		engine, err := registry.Get(id)
		if err != nil {
			continue
		}
		if err := engine.Save(db); err != nil {
			logger.Error("persist pool", "pool", id, "err", err)
		}
	}
}

// logEmitter forwards pool events to the structured log.
type logEmitter struct {
	log *slog.Logger
}

func (e *logEmitter) Emit(evt events.Event) {
	e.log.Info("pool event", "type", evt.EventType())
}

func bigFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// localBeacon is a self-advancing block source for single-node deployments:
// each tick finalises one height with fresh entropy.
type localBeacon struct {
	mu      sync.Mutex
	height  uint64
	beacons map[uint64][]byte
}

func newLocalBeacon() *localBeacon {
	return &localBeacon{beacons: make(map[uint64][]byte)}
}

func (b *localBeacon) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.advance()
		}
	}
}

func (b *localBeacon) advance() {
	entropy := make([]byte, 32)
	if _, err := crand.Read(entropy); err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.height++
	b.beacons[b.height] = entropy
	// Bound the retained history.
	if b.height > 1024 {
		delete(b.beacons, b.height-1024)
	}
}

// Height implements random.BlockSource.
func (b *localBeacon) Height() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.height
}

// BeaconAt implements random.BlockSource.
func (b *localBeacon) BeaconAt(height uint64) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entropy, ok := b.beacons[height]
	return entropy, ok
}
