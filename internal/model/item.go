package model

import "time"

// SizeResolutionFailed is stored in SizeBytes when resolution failed.
// Items carrying it are only retried after the configured back-off.
const SizeResolutionFailed int64 = -1

// TrackedItem is one row of the ledger: a single addressable path within
// the content store and everything observed about it.
type TrackedItem struct {
	// ItemID is either a bare content address or rootAddress/relativeName.
	ItemID string `json:"item_id"`

	// RootAddress is the container the item was discovered under.
	RootAddress string `json:"root_address"`

	// ResolvedAddress is the canonical address once resolved.
	ResolvedAddress *string `json:"resolved_address,omitempty"`

	// SizeBytes is the cumulative byte size, or SizeResolutionFailed.
	SizeBytes *int64 `json:"size_bytes,omitempty"`

	SizeAttempts    int        `json:"size_attempts"`
	LastSizeAttempt *time.Time `json:"last_size_attempt,omitempty"`

	ReplicaCount         int        `json:"replica_count"`
	IsPinnedLocally      bool       `json:"is_pinned_locally"`
	PinSuccesses         int        `json:"pin_successes"`
	LastReplicationCheck *time.Time `json:"last_replication_check,omitempty"`
}

// IsRootLevel reports whether the item names its container directly.
func (i TrackedItem) IsRootLevel() bool {
	return i.ItemID == i.RootAddress
}

// Size returns the known positive size, or 0.
func (i TrackedItem) Size() int64 {
	if i.SizeBytes == nil || *i.SizeBytes < 0 {
		return 0
	}
	return *i.SizeBytes
}

// Address returns the address to probe the network with.
func (i TrackedItem) Address() string {
	if i.ResolvedAddress != nil && *i.ResolvedAddress != "" {
		return *i.ResolvedAddress
	}
	return i.ItemID
}

// ChildPath joins a container address and a link name the way item ids are built.
func ChildPath(root, name string) string {
	return root + "/" + name
}
