package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/testutil"
)

func replicationOptions() ReplicationOptions {
	return ReplicationOptions{Concurrency: 4, Staleness: time.Hour, Timeout: time.Second}
}

func TestCountReplicas(t *testing.T) {
	tests := []struct {
		name       string
		peers      []ipfs.PeerResponse
		local      string
		wantCount  int
		wantPinned bool
	}{
		{
			name:       "two providers, local among them",
			peers:      []ipfs.PeerResponse{testutil.Provider("X"), testutil.Provider("Y")},
			local:      "X",
			wantCount:  2,
			wantPinned: true,
		},
		{
			name:      "local absent",
			peers:     []ipfs.PeerResponse{testutil.Provider("Y")},
			local:     "X",
			wantCount: 1,
		},
		{
			name: "other event types ignored",
			peers: []ipfs.PeerResponse{
				{PeerType: 0, Responses: []ipfs.PeerInfo{{PeerID: "X"}}},
				{PeerType: 1, Responses: []ipfs.PeerInfo{{PeerID: "Z"}}},
				testutil.Provider("Y"),
			},
			local:     "X",
			wantCount: 1,
		},
		{
			name:      "no responses",
			local:     "X",
			wantCount: 0,
		},
		{
			name:      "empty local id never matches",
			peers:     []ipfs.PeerResponse{{PeerType: ipfs.PeerTypeProvider, Responses: []ipfs.PeerInfo{{PeerID: ""}}}},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, pinned := CountReplicas(tt.peers, tt.local)
			assert.Equal(t, tt.wantCount, count)
			assert.Equal(t, tt.wantPinned, pinned)
		})
	}
}

func TestRefresh_RecordsCounts(t *testing.T) {
	s := newLedger(t)
	sized(t, s, "QmA", 10, 0)
	sized(t, s, "QmB", 10, 0)

	client := testutil.NewFakeClient().
		SetProviders("QmA", testutil.Provider("X"), testutil.Provider("Y")).
		SetProviders("QmB", testutil.Provider("Y"))
	clock := testutil.NewFakeClock(testutil.Epoch.Add(2 * time.Hour))

	m := NewReplicationMonitor(s, client, clock, replicationOptions(), nop, nil)
	res, err := m.Refresh(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, ReplicationResult{Due: 2, Checked: 2}, res)

	a := getItem(t, s, "QmA")
	assert.Equal(t, 2, a.ReplicaCount)
	assert.True(t, a.IsPinnedLocally)
	require.NotNil(t, a.LastReplicationCheck)
	assert.True(t, a.LastReplicationCheck.Equal(clock.Now()))

	b := getItem(t, s, "QmB")
	assert.Equal(t, 1, b.ReplicaCount)
	assert.False(t, b.IsPinnedLocally)
}

func TestRefresh_UsesResolvedAddress(t *testing.T) {
	s := newLedger(t)
	track(t, s, "QmRoot/poster", "QmRoot")
	require.NoError(t, s.RecordSize(context.Background(), "QmRoot/poster", "QmPoster", 42, testutil.Epoch))

	client := testutil.NewFakeClient().SetProviders("QmPoster", testutil.Provider("Y"))
	m := NewReplicationMonitor(s, client, testutil.NewFakeClock(testutil.Epoch), replicationOptions(), nop, nil)

	_, err := m.Refresh(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"QmPoster"}, client.FindCalls())
	assert.Equal(t, 1, getItem(t, s, "QmRoot/poster").ReplicaCount)
}

func TestRefresh_FailureLeavesItemDue(t *testing.T) {
	s := newLedger(t)
	track(t, s, "QmA", "QmA")
	require.NoError(t, s.RecordSize(context.Background(), "QmA", "QmA", 10, testutil.Epoch))
	sized(t, s, "QmB", 10, 0)

	client := testutil.NewFakeClient().
		FailProviders("QmA").
		SetProviders("QmB", testutil.Provider("Y"))
	clock := testutil.NewFakeClock(testutil.Epoch.Add(2 * time.Hour))
	m := NewReplicationMonitor(s, client, clock, replicationOptions(), nop, nil)

	res, err := m.Refresh(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, ReplicationResult{Due: 2, Checked: 1, Failed: 1}, res)
	assert.Nil(t, getItem(t, s, "QmA").LastReplicationCheck)

	// The next pass retries QmA but not the freshly checked QmB.
	res, err = m.Refresh(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Due)
}

func TestRefresh_SkipsUnresolvedAndFresh(t *testing.T) {
	s := newLedger(t)
	track(t, s, "QmNew", "QmNew")
	sized(t, s, "QmFresh", 10, 1)

	client := testutil.NewFakeClient()
	clock := testutil.NewFakeClock(testutil.Epoch.Add(30 * time.Minute))
	m := NewReplicationMonitor(s, client, clock, replicationOptions(), nop, nil)

	res, err := m.Refresh(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Due)
	assert.Empty(t, client.FindCalls())
}
