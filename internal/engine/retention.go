package engine

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/metrics"
	"github.com/roach88/pinbot/internal/model"
	"github.com/roach88/pinbot/internal/pool"
)

// RetentionOptions tunes the retention policy.
type RetentionOptions struct {
	Concurrency     int
	DiskBudget      int64
	MinPinThreshold int
}

// RetentionResult counts what one retention pass did.
type RetentionResult struct {
	Baseline    int64 // bytes already pinned before the pass
	Utilization int64 // baseline plus every admitted size
	Candidates  int
	Admitted    int
	Skipped     int // candidates that did not fit
	Pinned      int
	PinFailed   int
	PinnedBytes int64
}

// Retention admits under-replicated items into the pinned set.
type Retention struct {
	ledger  Ledger
	client  ipfs.Client
	opts    RetentionOptions
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewRetention creates a Retention.
func NewRetention(ledger Ledger, client ipfs.Client, opts RetentionOptions, log zerolog.Logger, m *metrics.Metrics) *Retention {
	return &Retention{
		ledger:  ledger,
		client:  client,
		opts:    opts,
		log:     log.With().Str("component", "retention").Logger(),
		metrics: m,
	}
}

// Apply runs one admission pass. Candidates are visited in ledger order
// (fewest replicas first, then item id); each one that still fits under the
// budget is reserved and pinned. A failed pin keeps its reservation until
// the next pass recomputes utilization from the ledger.
func (r *Retention) Apply(ctx context.Context) (RetentionResult, error) {
	pinned, err := r.ledger.QueryPinned(ctx)
	if err != nil {
		return RetentionResult{}, fmt.Errorf("retention: %w", err)
	}
	var baseline int64
	for _, item := range pinned {
		baseline += item.Size()
	}
	r.log.Info().
		Int("pinned", len(pinned)).
		Int64("bytes", baseline).
		Str("human", humanize.IBytes(uint64(baseline))).
		Msg("disk utilization")

	candidates, err := r.ledger.QuerySortedCandidates(ctx, r.opts.MinPinThreshold)
	if err != nil {
		return RetentionResult{}, fmt.Errorf("retention: %w", err)
	}
	r.log.Info().Int("candidates", len(candidates)).Msg("possibly pinning media")

	p, err := pool.New(r.opts.Concurrency, pool.WithLogger(r.log), pool.WithName("retention"))
	if err != nil {
		return RetentionResult{}, fmt.Errorf("retention: %w", err)
	}

	budget := NewBudget(r.opts.DiskBudget, baseline)
	res := RetentionResult{Baseline: baseline, Candidates: len(candidates)}
	var mu sync.Mutex

	run := p.Run(ctx, r.admissions(candidates, budget, &res, &mu))

	res.Utilization = budget.Used()
	res.Pinned = run.Succeeded
	res.PinFailed = run.Failed
	r.metrics.SetRetention(res.Utilization, budget.Limit(), res.Candidates)

	r.log.Info().
		Int("admitted", res.Admitted).
		Int("pinned", res.Pinned).
		Int("failed", res.PinFailed).
		Int64("utilization", res.Utilization).
		Str("human", humanize.IBytes(uint64(res.Utilization))).
		Msg("retention pass finished")
	return res, nil
}

// admissions yields one pin task per candidate that fits. The budget is
// charged here, before the task is handed to the pool.
func (r *Retention) admissions(candidates []model.TrackedItem, budget *Budget, res *RetentionResult, mu *sync.Mutex) iter.Seq[pool.Task] {
	return func(yield func(pool.Task) bool) {
		for _, item := range candidates {
			size := item.Size()
			if !budget.Admit(size) {
				res.Skipped++
				r.log.Debug().
					Str("item", item.ItemID).
					Int64("bytes", size).
					Int64("remaining", budget.Remaining()).
					Msg("does not fit in disk budget")
				continue
			}
			res.Admitted++

			task := func(ctx context.Context) error {
				if err := r.pin(ctx, item); err != nil {
					return err
				}
				mu.Lock()
				res.PinnedBytes += size
				mu.Unlock()
				return nil
			}
			if !yield(task) {
				return
			}
		}
	}
}

func (r *Retention) pin(ctx context.Context, item model.TrackedItem) error {
	addr := item.Address()
	r.log.Info().Str("address", addr).Int64("bytes", item.Size()).Msg("pinning")

	if err := r.client.AddPin(ctx, addr); err != nil {
		r.metrics.RecordPin(false, 0)
		r.log.Error().Str("item", item.ItemID).Str("address", addr).Err(err).Msg("failed to pin")
		return err
	}
	if err := r.ledger.MarkPinned(ctx, item.ItemID); err != nil {
		r.metrics.RecordPin(false, 0)
		r.log.Error().Str("item", item.ItemID).Err(err).Msg("pinned but failed to record")
		return err
	}

	r.metrics.RecordPin(true, item.Size())
	r.log.Info().Str("address", addr).Int64("bytes", item.Size()).Msg("pinned")
	return nil
}
