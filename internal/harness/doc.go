// Package harness runs pinning scenarios end to end against an in-memory
// ledger and a fake IPFS node.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: directory_media
//	description: "Children of a container are sized from its links"
//	config:
//	  disk: 1KB
//	  skip: [QmDead]
//	catalog:
//	  - alexandria: { filename: movie.mp4, dht: QmRoot, poster: poster.jpg }
//	  - oip041: { location: QmDead, files: [a.mp4] }
//	network:
//	  dirs:
//	    QmRoot:
//	      - { name: movie.mp4, target: QmMovie, size: 600 }
//	  leaves: { QmSolo: 100 }
//	  providers: { QmPoster: [PeerY] }
//	  fail_pin: [QmMovie]
//	cycles: 2
//	advance: 2h
//	assertions:
//	  - type: pinned
//	    addresses: [QmMovie]
//	  - type: item
//	    item: QmRoot/movie.mp4
//	    expect: { size: 600, replicas: 1, pinned: true }
//	  - type: cycle
//	    cycle: 1
//	    expect: { ingested: 4, utilization: 600 }
//
// # Assertion Types
//
//   - pinned: the set of addresses the node was asked to pin, in any order
//   - item: subset match on one ledger row after the last cycle
//   - cycle: subset match on the report of the n-th cycle (1-based)
//
// # Deterministic Testing
//
// Every run uses a fresh ":memory:" ledger, a fake clock starting at
// testutil.Epoch, and cycle ids cycle-1, cycle-2 and so on. The clock moves
// forward by advance between cycles. Pins are sorted in snapshots, so a
// run's snapshot is byte-identical across runs and can be compared against
// a golden file.
package harness
