// Command slotx-demo runs three configuration tasks against one registry:
// one whose stored bytes predate its current schema, one stored under the
// current schema, and one with no stored bytes at all. A maintainer loop
// services attachers and persists their writes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eggybyte-technology/slotx"
	"github.com/eggybyte-technology/slotx/blobstore"
)

// EncabulatorConfig is the current encabulator schema. SpinRate was added
// after bytes were already in the field, so it is optional and defaults to
// nil when older bytes are decoded.
type EncabulatorConfig struct {
	Polarity bool    `cbor:"0,keyasint"`
	SpinRate *uint32 `cbor:"1,keyasint,omitempty"`
}

// encabulatorV1 is the schema the seeded store bytes were written under.
type encabulatorV1 struct {
	Polarity bool `cbor:"0,keyasint"`
}

// GrammeterConfig is stored under its current schema.
type GrammeterConfig struct {
	Radiation float32 `cbor:"0,keyasint"`
}

// PositronConfig has no stored bytes; its declared default is served.
type PositronConfig struct {
	Up      uint8  `cbor:"0,keyasint"`
	Down    uint16 `cbor:"1,keyasint"`
	Strange uint32 `cbor:"2,keyasint"`
}

var (
	encabNode = slotx.NewNode[EncabulatorConfig]("encabulator/config")

	grammNode = slotx.NewNode[GrammeterConfig]("grammeter/config")

	positronNode = slotx.NewNode[PositronConfig]("positron/config",
		slotx.WithDefault(PositronConfig{Up: 10, Down: 20, Strange: 103}))
)

func main() {
	configPath := flag.String("config", "", "path to demo config yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "slotx-demo:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if err := seedStore(store); err != nil {
		return err
	}

	reg := slotx.New(
		slotx.WithLogger(logger),
		slotx.WithMetrics(slotx.NewMetrics(prometheus.DefaultRegisterer)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go encabulatorTask(ctx, &wg, reg, logger)
	go grammeterTask(ctx, &wg, reg, logger)
	go positronTask(ctx, &wg, reg, logger)

	maint := slotx.NewMaintainer(reg, store,
		slotx.WithInterval(cfg.Interval),
		slotx.WithMaintainerLogger(logger))
	if err := maint.Start(ctx); err != nil {
		return err
	}

	time.Sleep(cfg.RunFor)
	cancel()
	wg.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	return maint.Stop(stopCtx)
}

// seedStore plants the pre-existing field data: old-schema encabulator
// bytes, current-schema grammeter bytes, and nothing for positron.
func seedStore(store slotx.BackingStore) error {
	encab, err := cbor.Marshal(encabulatorV1{Polarity: true})
	if err != nil {
		return fmt.Errorf("seed encabulator: %w", err)
	}
	gramm, err := cbor.Marshal(GrammeterConfig{Radiation: 100.0})
	if err != nil {
		return fmt.Errorf("seed grammeter: %w", err)
	}
	return store.Apply(context.Background(), slotx.MapBatch{
		"encabulator/config": encab,
		"grammeter/config":   gramm,
	})
}

func encabulatorTask(ctx context.Context, wg *sync.WaitGroup, reg *slotx.Registry, logger *slog.Logger) {
	defer wg.Done()
	handle, err := encabNode.Attach(ctx, reg)
	if err != nil {
		logger.Error("encabulator attach failed", "error", err)
		return
	}
	cfg, _ := handle.Load()
	logger.Info("encabulator loaded", "polarity", cfg.Polarity, "spinrate", cfg.SpinRate)

	sleep(ctx, time.Second)
	rate := uint32(100)
	if err := handle.Write(EncabulatorConfig{Polarity: true, SpinRate: &rate}); err != nil {
		logger.Error("encabulator write failed", "error", err)
	}
}

func grammeterTask(ctx context.Context, wg *sync.WaitGroup, reg *slotx.Registry, logger *slog.Logger) {
	defer wg.Done()
	handle, err := grammNode.Attach(ctx, reg)
	if err != nil {
		logger.Error("grammeter attach failed", "error", err)
		return
	}
	cfg, _ := handle.Load()
	logger.Info("grammeter loaded", "radiation", cfg.Radiation)

	sleep(ctx, 3*time.Second)
	if err := handle.Write(GrammeterConfig{Radiation: 200.0}); err != nil {
		logger.Error("grammeter write failed", "error", err)
	}
}

func positronTask(ctx context.Context, wg *sync.WaitGroup, reg *slotx.Registry, logger *slog.Logger) {
	defer wg.Done()
	handle, err := positronNode.Attach(ctx, reg)
	if err != nil {
		logger.Error("positron attach failed", "error", err)
		return
	}
	cfg, _ := handle.Load()
	logger.Info("positron loaded", "up", cfg.Up, "down", cfg.Down, "strange", cfg.Strange)

	sleep(ctx, 5*time.Second)
	if err := handle.Write(PositronConfig{Up: 15, Down: 25, Strange: 108}); err != nil {
		logger.Error("positron write failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func openStore(cfg *Config, logger *slog.Logger) (slotx.BackingStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return blobstore.NewMemory(), nil
	case "sqlite":
		return blobstore.NewSQLite(cfg.Store.DSN, logger)
	case "mysql":
		return blobstore.NewMySQL(cfg.Store.DSN, logger)
	case "postgres":
		return blobstore.NewPostgres(cfg.Store.DSN, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
