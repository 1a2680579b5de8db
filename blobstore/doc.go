// Package blobstore provides backing-store implementations for slotx
// registries: an in-memory store for tests and volatile deployments, and a
// GORM-backed SQL store (SQLite, MySQL, PostgreSQL) for durable ones.
//
// Overview:
//   - Responsibility: Persist (key, bytes) pairs behind the slotx.Store and
//     slotx.BackingStore contracts
//   - Key Types: Memory, SQL, SQLOptions
//   - Concurrency Model: Both stores are safe for concurrent use
//   - Error Semantics: Lookup misses are reported via the found flag, not
//     errors; Apply returns errors for persistence failures
package blobstore
