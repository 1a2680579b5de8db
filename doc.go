// Package slotx provides lazily-populated, versioned configuration slots for
// long-lived tasks.
//
// Overview:
//   - Responsibility: Coordinate typed configuration slots ("nodes") that are
//     populated in batch from a key-value backing store and drained in batch
//     back to it when written
//   - Key Types: Registry, Node[T], Handle[T], Codec[T], Store, WriteBatch
//   - Concurrency Model: One coarse mutex covers registry membership and all
//     per-node state; Attach is the only blocking operation and resumes
//     exactly once, when a ProcessReads pass services the node
//   - Error Semantics: Programmer errors (double attach, use after detach)
//     fail hard; data-quality conditions (missing key, undecodable bytes)
//     are recovered locally by substituting the node's declared default and
//     are never surfaced to the attacher
//   - Performance Notes: Batch passes are O(1) per node and never block on
//     I/O beyond the synchronous store lookup
//
// Usage:
//
//	var node = slotx.NewNode[BeamConfig]("beam/config",
//	  slotx.WithDefault(BeamConfig{Gain: 3}))
//
//	reg := slotx.New(slotx.WithLogger(logger))
//
//	go func() {
//	  handle, err := node.Attach(ctx, reg)   // blocks until serviced
//	  cfg, _ := handle.Load()
//	  handle.Write(BeamConfig{Gain: cfg.Gain + 1})
//	}()
//
//	reg.ProcessReads(store)                  // services pending attachers
//	batch := slotx.MapBatch{}
//	reg.ProcessWrites(batch)                 // drains dirty nodes
package slotx
