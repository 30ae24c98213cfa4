package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/metrics"
	"github.com/roach88/pinbot/internal/model"
	"github.com/roach88/pinbot/internal/pool"
)

// ReplicationOptions tunes the replication monitor.
type ReplicationOptions struct {
	Concurrency int
	Staleness   time.Duration // re-check items last checked longer ago than this
	Timeout     time.Duration // per provider lookup
}

// ReplicationResult counts what one replication pass did.
type ReplicationResult struct {
	Due     int
	Checked int
	Failed  int
}

// ReplicationMonitor refreshes replica counts from provider lookups.
type ReplicationMonitor struct {
	ledger  Ledger
	client  ipfs.Client
	clock   Clock
	opts    ReplicationOptions
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewReplicationMonitor creates a ReplicationMonitor.
func NewReplicationMonitor(ledger Ledger, client ipfs.Client, clock Clock, opts ReplicationOptions, log zerolog.Logger, m *metrics.Metrics) *ReplicationMonitor {
	return &ReplicationMonitor{
		ledger:  ledger,
		client:  client,
		clock:   clock,
		opts:    opts,
		log:     log.With().Str("component", "replication").Logger(),
		metrics: m,
	}
}

// Refresh checks every resolved item that is due. localID is the local
// node's peer id; responses carrying it mark the item as pinned here.
// A failed lookup leaves the item untouched so the next pass retries it.
func (m *ReplicationMonitor) Refresh(ctx context.Context, localID string) (ReplicationResult, error) {
	items, err := m.ledger.QueryDueForReplicationCheck(ctx, m.clock.Now(), m.opts.Staleness)
	if err != nil {
		return ReplicationResult{}, fmt.Errorf("replication: %w", err)
	}
	m.log.Info().Int("items", len(items)).Msg("updating pin counts")

	p, err := pool.New(m.opts.Concurrency, pool.WithLogger(m.log), pool.WithName("replication"))
	if err != nil {
		return ReplicationResult{}, fmt.Errorf("replication: %w", err)
	}

	run := p.Run(ctx, pool.Each(items, func(ctx context.Context, item model.TrackedItem) error {
		return m.check(ctx, localID, item)
	}))
	return ReplicationResult{
		Due:     len(items),
		Checked: run.Succeeded,
		Failed:  run.Failed,
	}, nil
}

func (m *ReplicationMonitor) check(ctx context.Context, localID string, item model.TrackedItem) error {
	addr := item.Address()
	peers, err := m.client.FindProviders(ctx, addr, m.opts.Timeout)
	if err != nil {
		m.metrics.RecordReplication(false)
		m.log.Error().Str("item", item.ItemID).Str("address", addr).Err(err).Msg("provider lookup failed")
		return err
	}

	count, pinned := CountReplicas(peers, localID)
	if err := m.ledger.RecordReplication(ctx, item.ItemID, count, pinned, m.clock.Now()); err != nil {
		m.metrics.RecordReplication(false)
		m.log.Error().Str("item", item.ItemID).Err(err).Msg("failed to record replication")
		return err
	}

	m.metrics.RecordReplication(true)
	m.log.Info().Str("address", addr).Bool("pinned", pinned).Int("replicas", count).Msg("replication checked")
	return nil
}

// CountReplicas counts provider events and reports whether localID appears
// among the responses of any of them. Events of other types are ignored.
func CountReplicas(peers []ipfs.PeerResponse, localID string) (int, bool) {
	count := 0
	pinned := false
	for _, p := range peers {
		if p.PeerType != ipfs.PeerTypeProvider {
			continue
		}
		count++
		for _, r := range p.Responses {
			if localID != "" && r.PeerID == localID {
				pinned = true
			}
		}
	}
	return count, pinned
}
