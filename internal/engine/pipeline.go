package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/pinbot/internal/catalog"
	"github.com/roach88/pinbot/internal/config"
	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/metrics"
	"github.com/roach88/pinbot/internal/model"
)

// Pipeline runs ingestion, size resolution, replication and retention in
// order, once per call to RunCycle.
type Pipeline struct {
	ledger  Ledger
	source  catalog.Source
	client  ipfs.Client
	clock   Clock
	ids     IDGenerator
	log     zerolog.Logger
	metrics *metrics.Metrics

	ingester    *Ingester
	sizes       *SizeResolver
	replication *ReplicationMonitor
	retention   *Retention
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock replaces the wall clock.
func WithClock(c Clock) PipelineOption {
	return func(p *Pipeline) { p.clock = c }
}

// WithIDGenerator replaces the cycle id source.
func WithIDGenerator(g IDGenerator) PipelineOption {
	return func(p *Pipeline) { p.ids = g }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics sets the metric instruments. The default records nothing.
func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline builds the stages from cfg.
func NewPipeline(cfg config.Config, ledger Ledger, source catalog.Source, client ipfs.Client, opts ...PipelineOption) (*Pipeline, error) {
	budget, err := cfg.DiskBudget()
	if err != nil {
		return nil, err
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}

	p := &Pipeline{
		ledger: ledger,
		source: source,
		client: client,
		clock:  SystemClock{},
		ids:    UUIDv7Generator{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.ingester = NewIngester(ledger, client, p.clock, p.log, p.metrics)
	p.sizes = NewSizeResolver(ledger, client, p.clock, SizeOptions{
		Concurrency: cfg.Concurrency,
		RetryAfter:  cfg.Sizes.RetryAfter,
		MaxAttempts: cfg.Sizes.MaxAttempts,
		Skip:        NewSkipList(cfg.Sizes.Skip...),
	}, p.log, p.metrics)
	p.replication = NewReplicationMonitor(ledger, client, p.clock, ReplicationOptions{
		Concurrency: cfg.Concurrency,
		Staleness:   cfg.Replication.Staleness,
		Timeout:     cfg.Replication.Timeout,
	}, p.log, p.metrics)
	p.retention = NewRetention(ledger, client, RetentionOptions{
		Concurrency:     cfg.Concurrency,
		DiskBudget:      budget,
		MinPinThreshold: cfg.MinPinThreshold,
	}, p.log, p.metrics)

	return p, nil
}

// RunCycle runs every stage once and records the cycle in the ledger.
//
// A stage that cannot run (catalog unreachable, local identity unknown,
// ledger query failed) is noted in the report and the following stages
// still run. The returned error joins a *StageError per such stage; the
// report is valid either way. Only ctx cancellation stops the cycle early.
func (p *Pipeline) RunCycle(ctx context.Context) (model.CycleReport, error) {
	report := model.CycleReport{
		ID:        p.ids.Generate(),
		StartedAt: p.clock.Now(),
	}
	log := p.log.With().Str("cycle", report.ID).Logger()
	log.Info().Msg("cycle started")

	var errs []error
	fail := func(stage Stage, err error) {
		report.Notes = append(report.Notes, fmt.Sprintf("%s: %v", stage, err))
		errs = append(errs, &StageError{Stage: stage, Err: err})
	}

	p.stage(StageIngest, func() {
		descs, err := p.source.Fetch(ctx)
		if err != nil {
			log.Error().Err(err).Msg("catalog fetch failed, skipping ingestion")
			fail(StageIngest, err)
			return
		}
		res, err := p.ingester.Ingest(ctx, descs)
		report.Ingested = res.Created
		if err != nil {
			fail(StageIngest, err)
		}
	})

	if ctx.Err() == nil {
		p.stage(StageSizes, func() {
			res, err := p.sizes.Resolve(ctx)
			report.SizesResolved = res.Resolved
			report.SizesFailed = res.Failed
			if err != nil {
				log.Error().Err(err).Msg("size resolution did not run")
				fail(StageSizes, err)
			}
		})
	}

	if ctx.Err() == nil {
		p.stage(StageReplication, func() {
			id, err := p.client.LocalNodeIdentity(ctx)
			if err != nil {
				log.Error().Err(err).Msg("local node identity unavailable, skipping replication check")
				fail(StageIdentity, err)
				return
			}
			res, err := p.replication.Refresh(ctx, id)
			report.ReplicationChecked = res.Checked
			report.ReplicationFailed = res.Failed
			if err != nil {
				log.Error().Err(err).Msg("replication check did not run")
				fail(StageReplication, err)
			}
		})
	}

	if ctx.Err() == nil {
		p.stage(StageRetention, func() {
			res, err := p.retention.Apply(ctx)
			report.Pinned = res.Pinned
			report.PinFailed = res.PinFailed
			report.PinnedBytes = res.PinnedBytes
			report.Utilization = res.Utilization
			if err != nil {
				log.Error().Err(err).Msg("retention did not run")
				fail(StageRetention, err)
			}
		})
	}

	if err := ctx.Err(); err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("cancelled: %v", err))
		errs = append(errs, err)
	}

	report.FinishedAt = p.clock.Now()
	p.metrics.ObserveCycle(report.FinishedAt.Sub(report.StartedAt), report.FinishedAt)

	// The cycle record is written even when ctx is done.
	if err := p.ledger.WriteCycle(context.WithoutCancel(ctx), report); err != nil {
		log.Error().Err(err).Msg("failed to record cycle")
		errs = append(errs, err)
	}

	log.Info().
		Int("ingested", report.Ingested).
		Int("sized", report.SizesResolved).
		Int("checked", report.ReplicationChecked).
		Int("pinned", report.Pinned).
		Int64("utilization", report.Utilization).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("cycle finished")

	return report, errors.Join(errs...)
}

func (p *Pipeline) stage(name Stage, fn func()) {
	start := time.Now()
	fn()
	p.metrics.ObserveStage(string(name), time.Since(start))
}
