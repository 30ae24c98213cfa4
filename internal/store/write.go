package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/pinbot/internal/model"
)

// UpsertIfAbsent inserts a tracked item unless item_id is already present.
// Uses ON CONFLICT(item_id) DO NOTHING for idempotency - duplicate ingestion
// is silently ignored. Reports whether a new row was created.
func (s *Store) UpsertIfAbsent(ctx context.Context, itemID, rootAddress string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_items (item_id, root_address, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(item_id) DO NOTHING
	`, itemID, rootAddress, toMillis(now))
	if err != nil {
		return false, fmt.Errorf("upsert item %s: %w", itemID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert item %s: rows affected: %w", itemID, err)
	}
	return n > 0, nil
}

// RecordSize stores a successful size resolution.
func (s *Store) RecordSize(ctx context.Context, itemID, resolvedAddress string, size int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tracked_items
		SET size_bytes = ?, resolved_address = ?, size_attempts = size_attempts + 1, last_size_attempt = ?
		WHERE item_id = ?
	`, size, resolvedAddress, toMillis(at), itemID)
	if err != nil {
		return fmt.Errorf("record size %s: %w", itemID, err)
	}
	return nil
}

// RecordSizeFailure stores the failure sentinel so the item is not retried
// until the back-off expires.
func (s *Store) RecordSizeFailure(ctx context.Context, itemID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tracked_items
		SET size_bytes = ?, size_attempts = size_attempts + 1, last_size_attempt = ?
		WHERE item_id = ?
	`, model.SizeResolutionFailed, toMillis(at), itemID)
	if err != nil {
		return fmt.Errorf("record size failure %s: %w", itemID, err)
	}
	return nil
}

// RecordReplication stores the outcome of a provider lookup.
func (s *Store) RecordReplication(ctx context.Context, itemID string, replicaCount int, pinnedLocally bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tracked_items
		SET replica_count = ?, is_pinned = ?, last_replication_check = ?
		WHERE item_id = ?
	`, replicaCount, boolToInt(pinnedLocally), toMillis(at), itemID)
	if err != nil {
		return fmt.Errorf("record replication %s: %w", itemID, err)
	}
	return nil
}

// MarkPinned flags an item as pinned by this node, counts the local node as
// one more replica and bumps the pin success counter.
func (s *Store) MarkPinned(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tracked_items
		SET is_pinned = 1, replica_count = replica_count + 1, pin_successes = pin_successes + 1
		WHERE item_id = ?
	`, itemID)
	if err != nil {
		return fmt.Errorf("mark pinned %s: %w", itemID, err)
	}
	return nil
}

// WriteCycle records a finished pipeline cycle. Rewriting the same cycle id
// replaces the previous report.
func (s *Store) WriteCycle(ctx context.Context, report model.CycleReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("write cycle %s: marshal: %w", report.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cycles (id, started_at, finished_at, report)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET finished_at = excluded.finished_at, report = excluded.report
	`, report.ID, toMillis(report.StartedAt), toMillis(report.FinishedAt), string(data))
	if err != nil {
		return fmt.Errorf("write cycle %s: %w", report.ID, err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
