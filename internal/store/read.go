package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/pinbot/internal/model"
)

const itemColumns = `
	item_id, root_address, resolved_address, size_bytes, size_attempts, last_size_attempt,
	replica_count, is_pinned, pin_successes, last_replication_check`

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// GetItem retrieves a single tracked item.
// Returns ErrNotFound if the item is not tracked.
func (s *Store) GetItem(ctx context.Context, itemID string) (model.TrackedItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM tracked_items WHERE item_id = ?`, itemID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TrackedItem{}, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	return item, err
}

// QueryMissingSize returns items with no size yet, plus failed items whose
// last attempt is older than retryBefore and which have been tried fewer
// than maxAttempts times.
func (s *Store) QueryMissingSize(ctx context.Context, retryBefore time.Time, maxAttempts int) ([]model.TrackedItem, error) {
	return s.queryItems(ctx, "missing size", `
		SELECT `+itemColumns+`
		FROM tracked_items
		WHERE size_bytes IS NULL
		   OR (size_bytes = ? AND size_attempts < ? AND (last_size_attempt IS NULL OR last_size_attempt < ?))
		ORDER BY item_id COLLATE BINARY ASC
	`, model.SizeResolutionFailed, maxAttempts, toMillis(retryBefore))
}

// QueryDueForReplicationCheck returns resolved items never checked, or last
// checked before now-staleness.
func (s *Store) QueryDueForReplicationCheck(ctx context.Context, now time.Time, staleness time.Duration) ([]model.TrackedItem, error) {
	cutoff := now.Add(-staleness)
	return s.queryItems(ctx, "due for replication check", `
		SELECT `+itemColumns+`
		FROM tracked_items
		WHERE resolved_address IS NOT NULL
		  AND (last_replication_check IS NULL OR last_replication_check < ?)
		ORDER BY item_id COLLATE BINARY ASC
	`, toMillis(cutoff))
}

// QuerySortedCandidates returns unpinned items of known positive size with
// fewer than minReplicaThreshold replicas, most under-replicated first,
// ties broken by item_id.
func (s *Store) QuerySortedCandidates(ctx context.Context, minReplicaThreshold int) ([]model.TrackedItem, error) {
	return s.queryItems(ctx, "candidates", `
		SELECT `+itemColumns+`
		FROM tracked_items
		WHERE is_pinned = 0
		  AND size_bytes > 0
		  AND replica_count < ?
		ORDER BY replica_count ASC, item_id COLLATE BINARY ASC
	`, minReplicaThreshold)
}

// QueryPinned returns every item currently pinned locally.
func (s *Store) QueryPinned(ctx context.Context) ([]model.TrackedItem, error) {
	return s.queryItems(ctx, "pinned", `
		SELECT `+itemColumns+`
		FROM tracked_items
		WHERE is_pinned = 1
		ORDER BY item_id COLLATE BINARY ASC
	`)
}

// AllItems returns every tracked item ordered by item_id.
func (s *Store) AllItems(ctx context.Context) ([]model.TrackedItem, error) {
	return s.queryItems(ctx, "all items", `
		SELECT `+itemColumns+`
		FROM tracked_items
		ORDER BY item_id COLLATE BINARY ASC
	`)
}

// Summary aggregates the ledger for reporting.
func (s *Store) Summary(ctx context.Context) (model.LedgerSummary, error) {
	var sum model.LedgerSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN size_bytes >= 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN size_bytes < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN size_bytes IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(is_pinned), 0),
			COALESCE(SUM(CASE WHEN is_pinned = 1 AND size_bytes > 0 THEN size_bytes ELSE 0 END), 0)
		FROM tracked_items
	`).Scan(&sum.Tracked, &sum.Sized, &sum.SizeFailed, &sum.Unresolved, &sum.Pinned, &sum.PinnedBytes)
	if err != nil {
		return model.LedgerSummary{}, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

// LastCycle returns the most recently started cycle.
// Returns ErrNotFound if no cycle has been recorded.
func (s *Store) LastCycle(ctx context.Context) (model.CycleReport, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT report FROM cycles ORDER BY started_at DESC, id DESC LIMIT 1
	`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CycleReport{}, fmt.Errorf("last cycle: %w", ErrNotFound)
	}
	if err != nil {
		return model.CycleReport{}, fmt.Errorf("last cycle: %w", err)
	}

	var report model.CycleReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return model.CycleReport{}, fmt.Errorf("last cycle: unmarshal: %w", err)
	}
	return report, nil
}

func (s *Store) queryItems(ctx context.Context, what, query string, args ...any) ([]model.TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	items := []model.TrackedItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", what, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}

	return items, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (model.TrackedItem, error) {
	var (
		item            model.TrackedItem
		resolved        sql.NullString
		size            sql.NullInt64
		lastSizeAttempt sql.NullInt64
		pinned          int
		lastCheck       sql.NullInt64
	)

	err := sc.Scan(
		&item.ItemID,
		&item.RootAddress,
		&resolved,
		&size,
		&item.SizeAttempts,
		&lastSizeAttempt,
		&item.ReplicaCount,
		&pinned,
		&item.PinSuccesses,
		&lastCheck,
	)
	if err != nil {
		return model.TrackedItem{}, err
	}

	if resolved.Valid {
		item.ResolvedAddress = &resolved.String
	}
	if size.Valid {
		item.SizeBytes = &size.Int64
	}
	item.LastSizeAttempt = fromMillis(lastSizeAttempt)
	item.IsPinnedLocally = pinned != 0
	item.LastReplicationCheck = fromMillis(lastCheck)

	return item, nil
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
