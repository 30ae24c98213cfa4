// Package store provides the SQLite-backed ledger of tracked content items.
//
// The ledger holds:
//   - tracked_items: one row per addressable path, keyed by item_id
//   - cycles: one row per pipeline run (audit log)
//
// # Query shapes
//
// Four read paths serve the pipeline, each backed by an index:
//   - QueryMissingSize: items still lacking a size
//   - QueryDueForReplicationCheck: resolved items whose check is stale
//   - QuerySortedCandidates: unpinned, sized, under-replicated items,
//     ORDER BY replica_count ASC, item_id ASC COLLATE BINARY
//   - QueryPinned: everything counted against the disk budget
//
// AllItems and Summary are reporting reads and are not on the hot path.
//
// # Concurrency
//
// Each query and mutation is a single statement and therefore atomic. The
// pipeline runs many tasks against the ledger at once, but every task
// mutates only the row keyed by its own item_id, so no cross-row locking
// is needed. The connection pool is capped at one connection; SQLite
// serialises writers anyway and busy_timeout absorbs contention.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
