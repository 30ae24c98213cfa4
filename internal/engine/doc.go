// Package engine implements pinbot's admission and retention pipeline.
//
// A cycle runs four stages against the ledger, in order:
//
//  1. Ingester turns catalog descriptors into tracked items.
//  2. SizeResolver fills in byte sizes and resolved addresses.
//  3. ReplicationMonitor counts providers for every resolved item.
//  4. Retention pins under-replicated items until the disk budget is spent.
//
// Every network probe runs through a bounded pool. A failure is confined to
// the item it concerns: it is logged, recorded where the ledger has a place
// for it, and the stage moves on. Pipeline wires the stages together and
// records a CycleReport for each run.
//
// Components receive their configuration, logger and clock at construction;
// the package keeps no global state.
package engine
