package engine

import (
	"context"
	"time"

	"github.com/roach88/pinbot/internal/model"
)

// Ledger is the persistent state the pipeline reads and mutates.
// *store.Store implements it.
type Ledger interface {
	UpsertIfAbsent(ctx context.Context, itemID, rootAddress string, now time.Time) (bool, error)

	QueryMissingSize(ctx context.Context, retryBefore time.Time, maxAttempts int) ([]model.TrackedItem, error)
	RecordSize(ctx context.Context, itemID, resolvedAddress string, size int64, at time.Time) error
	RecordSizeFailure(ctx context.Context, itemID string, at time.Time) error

	QueryDueForReplicationCheck(ctx context.Context, now time.Time, staleness time.Duration) ([]model.TrackedItem, error)
	RecordReplication(ctx context.Context, itemID string, replicaCount int, pinnedLocally bool, at time.Time) error

	QuerySortedCandidates(ctx context.Context, minReplicaThreshold int) ([]model.TrackedItem, error)
	QueryPinned(ctx context.Context) ([]model.TrackedItem, error)
	MarkPinned(ctx context.Context, itemID string) error

	WriteCycle(ctx context.Context, report model.CycleReport) error
}
