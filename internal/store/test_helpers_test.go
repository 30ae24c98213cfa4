package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new on-disk store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedItem inserts an item and optionally records its size.
func seedItem(t *testing.T, s *Store, itemID, root string, size int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.UpsertIfAbsent(ctx, itemID, root, epoch); err != nil {
		t.Fatalf("UpsertIfAbsent(%s) failed: %v", itemID, err)
	}
	if size != 0 {
		if err := s.RecordSize(ctx, itemID, itemID+"-resolved", size, epoch); err != nil {
			t.Fatalf("RecordSize(%s) failed: %v", itemID, err)
		}
	}
}
