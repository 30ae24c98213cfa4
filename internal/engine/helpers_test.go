package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pinbot/internal/model"
	"github.com/roach88/pinbot/internal/store"
	"github.com/roach88/pinbot/internal/testutil"
)

var nop = zerolog.Nop()

func newLedger(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// sized tracks a root-level item with a known size and replica count.
func sized(t *testing.T, s *store.Store, id string, size int64, replicas int) {
	t.Helper()
	ctx := context.Background()
	_, err := s.UpsertIfAbsent(ctx, id, id, testutil.Epoch)
	require.NoError(t, err)
	require.NoError(t, s.RecordSize(ctx, id, id, size, testutil.Epoch))
	require.NoError(t, s.RecordReplication(ctx, id, replicas, false, testutil.Epoch))
}

func getItem(t *testing.T, s *store.Store, id string) model.TrackedItem {
	t.Helper()
	item, err := s.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item
}

func ptr[T any](v T) *T { return &v }

func sizeOptions() SizeOptions {
	return SizeOptions{Concurrency: 4, RetryAfter: 24 * time.Hour, MaxAttempts: 5}
}
