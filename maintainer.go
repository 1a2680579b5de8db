package slotx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// BackingStore is the full backing-store collaborator driven by a
// Maintainer: synchronous lookups for read passes plus batch persistence
// for drained writes.
type BackingStore interface {
	Store

	// Apply persists one drained batch. Transactionality is the store's
	// concern; the registry only guarantees the batch is internally
	// consistent.
	Apply(ctx context.Context, batch MapBatch) error
}

// MaintainerOption configures a Maintainer.
type MaintainerOption func(*Maintainer)

// WithInterval sets the period between maintenance ticks (default 1s).
func WithInterval(d time.Duration) MaintainerOption {
	return func(m *Maintainer) { m.interval = d }
}

// WithMaintainerLogger sets the maintainer logger. The default discards
// all output.
func WithMaintainerLogger(logger *slog.Logger) MaintainerOption {
	return func(m *Maintainer) { m.logger = logger }
}

// Maintainer periodically drives a registry's batch passes against a
// backing store: each tick services pending attachers with ProcessReads,
// then drains dirty nodes with ProcessWrites and persists the batch.
//
// It implements the Start/Stop service lifecycle so a host runtime can own
// it; Stop performs a final drain so staged writes are not lost on
// shutdown.
type Maintainer struct {
	reg      *Registry
	store    BackingStore
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMaintainer creates a maintainer for reg backed by store.
func NewMaintainer(reg *Registry, store BackingStore, opts ...MaintainerOption) *Maintainer {
	m := &Maintainer{
		reg:      reg,
		store:    store,
		interval: time.Second,
	}
	for _, fn := range opts {
		fn(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// Tick runs one maintenance pass: reads, then writes, then persistence.
// Exported so callers that own their own scheduling can drive the registry
// directly instead of running the loop.
func (m *Maintainer) Tick(ctx context.Context) error {
	m.reg.ProcessReads(m.store)

	batch := MapBatch{}
	if m.reg.ProcessWrites(batch) == 0 {
		return nil
	}
	if err := m.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("apply drained batch: %w", err)
	}
	m.logger.Debug("batch persisted", "entries", len(batch))
	return nil
}

// Start launches the maintenance loop. It returns immediately; the loop
// runs until Stop is called or ctx is cancelled.
func (m *Maintainer) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return fmt.Errorf("slotx: maintainer already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(loopCtx, m.done)
	m.logger.Info("maintainer started", "interval", m.interval)
	return nil
}

// Stop halts the loop, waits for it to exit, and runs one final tick so
// writes staged since the last pass reach the store. The final tick honors
// the deadline of ctx.
func (m *Maintainer) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("slotx: maintainer stop: %w", ctx.Err())
	}

	if err := m.Tick(ctx); err != nil {
		return fmt.Errorf("slotx: final drain: %w", err)
	}
	m.logger.Info("maintainer stopped")
	return nil
}

func (m *Maintainer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Tick(ctx); err != nil {
				m.logger.Error("maintenance tick failed", "error", err)
			}
		}
	}
}
