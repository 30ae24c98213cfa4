package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/testutil"
)

func TestBudget(t *testing.T) {
	b := NewBudget(100, 40)

	assert.True(t, b.Admit(30))
	assert.Equal(t, int64(70), b.Used())

	assert.False(t, b.Admit(30), "used+size must stay strictly below the limit")
	assert.Equal(t, int64(70), b.Used())

	assert.True(t, b.Admit(29))
	assert.Equal(t, int64(1), b.Remaining())

	assert.False(t, b.Admit(0))
	assert.False(t, b.Admit(-5))
	assert.Equal(t, int64(100), b.Limit())
}

func TestApply_GreedyOrder(t *testing.T) {
	s := newLedger(t)
	sized(t, s, "QmItemA", 10, 3)
	sized(t, s, "QmItemB", 10, 1)
	sized(t, s, "QmItemC", 10, 1)
	sized(t, s, "QmItemD", 10, 2)

	client := testutil.NewFakeClient()
	r := NewRetention(s, client, RetentionOptions{Concurrency: 1, DiskBudget: 1000, MinPinThreshold: 10}, nop, nil)

	res, err := r.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Pinned)
	assert.Equal(t, []string{"QmItemB", "QmItemC", "QmItemD", "QmItemA"}, client.Pins())
}

func TestApply_SkipsWhatDoesNotFit(t *testing.T) {
	s := newLedger(t)
	sized(t, s, "QmPinned", 300, 1)
	require.NoError(t, s.MarkPinned(context.Background(), "QmPinned"))

	sized(t, s, "QmBig", 600, 0)
	sized(t, s, "QmMid", 500, 0)
	sized(t, s, "QmSmall", 100, 0)
	sized(t, s, "QmTiny", 99, 0)

	client := testutil.NewFakeClient()
	r := NewRetention(s, client, RetentionOptions{Concurrency: 1, DiskBudget: 1000, MinPinThreshold: 1}, nop, nil)

	res, err := r.Apply(context.Background())
	require.NoError(t, err)

	// 300 baseline: QmBig fits (900), QmMid does not, QmSmall would reach
	// exactly 1000 and is refused, QmTiny fits at 999.
	assert.Equal(t, []string{"QmBig", "QmTiny"}, client.Pins())
	assert.Equal(t, int64(300), res.Baseline)
	assert.Equal(t, int64(999), res.Utilization)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, int64(699), res.PinnedBytes)

	big := getItem(t, s, "QmBig")
	assert.True(t, big.IsPinnedLocally)
	assert.Equal(t, 1, big.ReplicaCount)
	assert.Equal(t, 1, big.PinSuccesses)
}

func TestApply_ThresholdExcludesHealthyItems(t *testing.T) {
	s := newLedger(t)
	sized(t, s, "QmHealthy", 10, 3)
	sized(t, s, "QmRare", 10, 0)

	client := testutil.NewFakeClient()
	r := NewRetention(s, client, RetentionOptions{Concurrency: 2, DiskBudget: 1000, MinPinThreshold: 1}, nop, nil)

	res, err := r.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, []string{"QmRare"}, client.Pins())
}

func TestApply_PinFailureKeepsReservation(t *testing.T) {
	s := newLedger(t)
	sized(t, s, "QmA", 400, 0)
	sized(t, s, "QmB", 400, 0)
	sized(t, s, "QmC", 400, 0)

	client := testutil.NewFakeClient().FailPin("QmA")
	r := NewRetention(s, client, RetentionOptions{Concurrency: 2, DiskBudget: 1000, MinPinThreshold: 1}, nop, nil)

	res, err := r.Apply(context.Background())
	require.NoError(t, err)

	// QmA's 400 bytes stay counted, so QmC no longer fits.
	assert.Equal(t, []string{"QmB"}, client.Pins())
	assert.Equal(t, 2, res.Admitted)
	assert.Equal(t, 1, res.Pinned)
	assert.Equal(t, 1, res.PinFailed)
	assert.Equal(t, int64(800), res.Utilization)
	assert.False(t, getItem(t, s, "QmA").IsPinnedLocally)
}

func TestApply_BudgetHoldsUnderConcurrency(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 5; round++ {
		t.Run(fmt.Sprintf("round-%d", round), func(t *testing.T) {
			s := newLedger(t)
			sizes := make(map[string]int64)

			var baseline int64
			for i := 0; i < 3; i++ {
				id := fmt.Sprintf("QmPinned%02d", i)
				size := rng.Int64N(200) + 1
				sized(t, s, id, size, 1)
				require.NoError(t, s.MarkPinned(context.Background(), id))
				baseline += size
			}
			for i := 0; i < 60; i++ {
				id := fmt.Sprintf("QmCand%02d", i)
				size := rng.Int64N(400) + 1
				sized(t, s, id, size, rng.IntN(3))
				sizes[id] = size
			}

			budget := baseline + rng.Int64N(4000) + 500
			delays := make(map[string]time.Duration)
			for id := range sizes {
				delays[id] = time.Duration(rng.IntN(3000)) * time.Microsecond
			}
			client := testutil.NewFakeClient().SetPinDelay(func(addr string) time.Duration {
				return delays[addr]
			})

			r := NewRetention(s, client, RetentionOptions{Concurrency: 8, DiskBudget: budget, MinPinThreshold: 5}, nop, nil)
			res, err := r.Apply(context.Background())
			require.NoError(t, err)

			var pinned int64
			for _, addr := range client.Pins() {
				pinned += sizes[addr]
			}
			assert.Less(t, baseline+pinned, budget)
			assert.Equal(t, baseline+pinned, res.Utilization)
			assert.Equal(t, pinned, res.PinnedBytes)
			assert.LessOrEqual(t, client.MaxConcurrentPins(), 8)
		})
	}
}

func TestApply_HungPinFailsOnlyItsItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arg := r.URL.Query().Get("arg")
		if r.URL.Path != "/api/v0/pin/add" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if arg == "QmHung" {
			<-r.Context().Done()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"Pins": []string{arg}})
	}))
	t.Cleanup(srv.Close)

	s := newLedger(t)
	sized(t, s, "QmHung", 100, 0)
	sized(t, s, "QmOk", 100, 0)

	client := ipfs.NewKubo(srv.URL, ipfs.WithPinTimeout(100*time.Millisecond))
	r := NewRetention(s, client, RetentionOptions{Concurrency: 1, DiskBudget: 1000, MinPinThreshold: 1}, nop, nil)

	done := make(chan RetentionResult, 1)
	go func() {
		res, err := r.Apply(context.Background())
		assert.NoError(t, err)
		done <- res
	}()

	var res RetentionResult
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("retention pass never finished")
	}

	assert.Equal(t, 1, res.Pinned)
	assert.Equal(t, 1, res.PinFailed)
	assert.False(t, getItem(t, s, "QmHung").IsPinnedLocally)
	assert.True(t, getItem(t, s, "QmOk").IsPinnedLocally)
}
